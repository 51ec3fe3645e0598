//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres container: %v\n", err)
		os.Exit(1)
	}

	code := func() int {
		defer func() { _ = container.Terminate(ctx) }()

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
			return 1
		}
		if err := runMigrations(connStr); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}

		testDB, err = sql.Open("postgres", connStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return 1
		}
		defer testDB.Close()

		return m.Run()
	}()
	os.Exit(code)
}

func runMigrations(connStr string) error {
	_, filename, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(filename), "..", "..")

	m, err := migrate.New("file://"+filepath.Join(root, "migrations"), connStr)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// newStore returns a store over an empty schema.
func newStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()

	_, err := testDB.Exec(`
		TRUNCATE messages, order_items, orders, cart_items, user_vouchers, vouchers,
			custom_proposals, products, api_tokens, users
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return store.New(testDB, opts...)
}

func mustUser(t *testing.T, s *store.Store, email, role string) *models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, email, role)
	require.NoError(t, err)
	return u
}

func mustProduct(t *testing.T, s *store.Store, name, price string) *models.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), store.CreateProductParams{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Image: name + ".png",
	})
	require.NoError(t, err)
	return p
}

func mustProposal(t *testing.T, s *store.Store, clerk, customer *models.User, category, price string) *models.CustomProposal {
	t.Helper()
	p, _, err := s.CreateProposal(context.Background(), store.CreateProposalRequest{
		ClerkID:              clerk.ID,
		CustomerID:           customer.ID,
		Name:                 category + " design",
		CustomizationRequest: "Team colors with embroidered logo",
		DesignerMessage:      "First draft attached",
		Material:             "cotton",
		Features:             []string{"embroidery", "custom name"},
		Images:               []string{"draft-1.png"},
		Category:             category,
		TotalPrice:           decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return p
}

func mustGrant(t *testing.T, s *store.Store, user *models.User, percent int) *models.UserVoucher {
	t.Helper()
	ctx := context.Background()

	v, err := s.CreateVoucher(ctx, store.CreateVoucherRequest{
		Name:               fmt.Sprintf("%d off", percent),
		Percent:            percent,
		ExpirationType:     models.ExpirationDays,
		ExpirationDuration: 7,
	})
	require.NoError(t, err)

	grants, err := s.IssueGrants(ctx, v.ID, []int64{user.ID})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	return &grants[0]
}

func orderRequest(userID int64, items ...store.OrderItemRequest) store.PlaceOrderRequest {
	return store.PlaceOrderRequest{
		UserID:            userID,
		Items:             items,
		PaymentMethod:     models.PaymentCOD,
		CustomerFirstName: "Ana",
		CustomerLastName:  "Cruz",
		CustomerEmail:     "ana@example.com",
		CustomerPhone:     "09170000000",
		CustomerAddress:   "12 Mabini St, Manila",
	}
}

func productItem(id int64, qty int) store.OrderItemRequest {
	return store.OrderItemRequest{ProductID: &id, Quantity: qty}
}

func proposalItem(id int64, qty int, size string) store.OrderItemRequest {
	item := store.OrderItemRequest{CustomProposalID: &id, Quantity: qty, IsCustomized: true}
	if size != "" {
		item.Size = &size
	}
	return item
}

func countRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, testDB.QueryRow(query, args...).Scan(&n))
	return n
}
