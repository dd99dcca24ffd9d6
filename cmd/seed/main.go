// Package main provides a CLI tool for seeding a tenant database with
// initial data: the admin user, demo CRM records, and a sample public form.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"crmforge/internal/core/entity"
	"crmforge/internal/core/id"
	"crmforge/internal/core/tenant"
	"crmforge/internal/infrastructure/storage/postgres"
	"crmforge/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Connect to database
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	// Seed admin user
	adminUserID, err := seedAdminUser(ctx, pool, log)
	if err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	// Seed demo data if requested
	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedTenantRegistry(ctx, dbURL, log); err != nil {
			log.Warnw("failed to seed tenant registry", "error", err)
		}
		if err := seedDemoRecords(ctx, pool, log, adminUserID); err != nil {
			log.Fatalw("failed to seed demo records", "error", err)
		}
		if err := seedDemoSchema(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo schema", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) (id.ID, error) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@crmforge.io"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	// Check if admin already exists
	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1 AND NOT deletion_mark`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return existingID, nil
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return id.Nil(), fmt.Errorf("check admin exists: %w", err)
	}

	// Hash password
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return id.Nil(), fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()
	now := time.Now()

	// Create admin user
	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name,
			is_active, is_admin, email_verified, email_verified_at, version
		)
		VALUES ($1, $2, $3, 'System', 'Admin', true, true, true, $4, 1)
	`, userID, adminEmail, string(passwordHash), now)
	if err != nil {
		return id.Nil(), fmt.Errorf("insert admin user: %w", err)
	}

	// Assign admin role
	var adminRoleID id.ID
	err = pool.Pool.QueryRow(ctx,
		`SELECT id FROM roles WHERE code = 'admin'`,
	).Scan(&adminRoleID)
	if err != nil {
		log.Warnw("admin role not found, skipping role assignment", "error", err)
	} else {
		_, err = pool.Pool.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id, granted_by)
			VALUES ($1, $2, NULL)
			ON CONFLICT (user_id, role_id) DO NOTHING
		`, userID, adminRoleID)
		if err != nil {
			log.Warnw("failed to assign admin role", "error", err)
		}
	}

	log.Infow("admin user created",
		"email", adminEmail,
		"user_id", userID,
	)

	return userID, nil
}

// seedDemoRecords bulk-loads sample CRM records through the COPY protocol.
// Re-running the seeder skips the load when records already exist.
func seedDemoRecords(ctx context.Context, pool *postgres.Pool, log *logger.Logger, adminUserID id.ID) error {
	log.Info("seeding demo records...")

	var existing int
	if err := pool.Pool.QueryRow(ctx, `SELECT count(*) FROM records`).Scan(&existing); err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	if existing > 0 {
		log.Infow("records already present, skipping demo data", "count", existing)
		return nil
	}

	createdBy := adminUserID.String()

	account := entity.NewRecord("accounts", entity.Values{
		"name":     "Acme Corporation",
		"industry": "manufacturing",
		"website":  "https://acme.example.com",
		"phone":    "+1 415 555 0100",
	})

	demo := []entity.Record{
		account,
		entity.NewRecord("contacts", entity.Values{
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"email":     "ada@acme.example.com",
			"account":   account.ID.String(),
		}),
		entity.NewRecord("leads", entity.Values{
			"firstName": "Grace",
			"lastName":  "Hopper",
			"email":     "grace@globex.example.com",
			"company":   "Globex",
			"status":    "new",
			"source":    "web",
		}),
		entity.NewRecord("leads", entity.Values{
			"firstName": "Linus",
			"lastName":  "Berg",
			"email":     "linus@initech.example.com",
			"company":   "Initech",
			"status":    "contacted",
			"source":    "referral",
		}),
		entity.NewRecord("deals", entity.Values{
			"dealNumber":  "DEAL-2026-00001",
			"name":        "Acme annual license",
			"accountMode": "existing",
			"account":     account.ID.String(),
			"amount":      48000.0,
			"probability": 60.0,
			"stage":       "proposal",
		}),
		entity.NewRecord("activities", entity.Values{
			"subject": "Intro call with Ada",
			"type":    "call",
			"done":    false,
			"notes":   "Walk through the proposal draft.",
		}),
	}
	for i := range demo {
		demo[i].CreatedBy = createdBy
		demo[i].UpdatedBy = createdBy
	}

	txManager := postgres.NewTxManager(pool)
	inserter := postgres.NewBatchInserter(txManager)

	var copied int64
	err := txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var copyErr error
		copied, copyErr = inserter.CopyRecords(ctx, demo)
		return copyErr
	})
	if err != nil {
		return fmt.Errorf("copy demo records: %w", err)
	}

	log.Infow("demo records seeded", "count", copied)
	return nil
}

// seedDemoSchema adds one custom field, a layout, and a public lead-capture
// form so a fresh tenant has every metadata surface populated.
func seedDemoSchema(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	log.Info("seeding demo schema...")

	_, err := pool.Pool.Exec(ctx, `
		INSERT INTO custom_fields (module, api_name, definition)
		VALUES ('deals', 'discountPercent', $1)
		ON CONFLICT (module, api_name) DO NOTHING
	`, map[string]any{
		"apiName":      "discountPercent",
		"fieldType":    "percent",
		"label":        "Discount %",
		"sortOrder":    20,
		"numberConfig": map[string]any{"min": 0, "max": 100},
		"validation": map[string]any{
			"expression":        "value <= 50.0",
			"expressionMessage": "Discount cannot exceed 50%",
		},
	})
	if err != nil {
		return fmt.Errorf("seed custom field: %w", err)
	}

	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO layouts (id, module, view_type, definition, is_active)
		VALUES ($1, 'deals', 'edit', $2, true)
		ON CONFLICT DO NOTHING
	`, id.New(), map[string]any{
		"module":   "deals",
		"viewType": "edit",
		"sections": []map[string]any{
			{"title": "Deal", "fields": []string{"name", "stage", "amount", "probability", "discountPercent"}},
			{"title": "Account", "fields": []string{"accountMode", "account", "accountName"}},
		},
	})
	if err != nil {
		return fmt.Errorf("seed layout: %w", err)
	}

	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO form_definitions (id, module, definition)
		VALUES ('lead-capture', 'leads', $1)
		ON CONFLICT (id, module) DO UPDATE SET definition = EXCLUDED.definition
	`, map[string]any{
		"id":       "lead-capture",
		"module":   "leads",
		"name":     "Website Lead Capture",
		"isPublic": true,
		"mappings": []map[string]any{
			{"fieldApiName": "firstName", "sortOrder": 0},
			{"fieldApiName": "lastName", "sortOrder": 1, "isRequired": true},
			{"fieldApiName": "email", "sortOrder": 2, "isRequired": true},
			{"fieldApiName": "company", "sortOrder": 3},
			{"fieldApiName": "source", "sortOrder": 4, "isHidden": true, "defaultValue": "web"},
		},
		"settings": map[string]any{
			"submitLabel":    "Request a demo",
			"successMessage": "Thanks, we will be in touch shortly.",
		},
	})
	if err != nil {
		return fmt.Errorf("seed form definition: %w", err)
	}

	log.Info("demo schema seeded")
	return nil
}

func seedTenantRegistry(ctx context.Context, dbURL string, log *logger.Logger) error {
	metaDSN := os.Getenv("META_DATABASE_URL")
	if metaDSN == "" {
		log.Warn("META_DATABASE_URL is not set; skipping tenant registry seed")
		return nil
	}

	metaPool, err := pgxpool.New(ctx, metaDSN)
	if err != nil {
		return fmt.Errorf("connect meta database: %w", err)
	}
	defer metaPool.Close()

	if err := metaPool.Ping(ctx); err != nil {
		return fmt.Errorf("ping meta database: %w", err)
	}

	tenantSlug := os.Getenv("TENANT_SLUG")
	if tenantSlug == "" {
		tenantSlug = "demo"
	}

	tenantName := os.Getenv("TENANT_NAME")
	if tenantName == "" {
		tenantName = "Demo Tenant"
	}

	tenantPlan := os.Getenv("TENANT_PLAN")
	if tenantPlan == "" {
		tenantPlan = string(tenant.PlanStandard)
	}

	dbConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return fmt.Errorf("parse tenant database url: %w", err)
	}

	dbHost := dbConfig.ConnConfig.Host
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := int(dbConfig.ConnConfig.Port)
	if dbPort == 0 {
		dbPort = 5432
	}

	dbName := dbConfig.ConnConfig.Database
	if dbName == "" {
		dbName = "crmforge"
	}

	registry := tenant.NewPostgresRegistry(metaPool)

	existing, err := registry.GetBySlug(ctx, tenantSlug)
	if err == nil {
		log.Infow("tenant already exists in registry", "slug", tenantSlug, "tenant_id", existing.ID)
		return nil
	}
	if !errors.Is(err, tenant.ErrTenantNotFound) {
		return fmt.Errorf("check tenant exists: %w", err)
	}
	newTenant := &tenant.Tenant{
		Slug:        tenantSlug,
		DisplayName: tenantName,
		DBName:      dbName,
		DBHost:      dbHost,
		DBPort:      dbPort,
		Status:      tenant.StatusActive,
		Plan:        tenant.Plan(tenantPlan),
		Settings:    map[string]any{},
	}

	if err := registry.Create(ctx, newTenant); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}

	log.Infow("tenant seeded in registry", "slug", tenantSlug, "tenant_id", newTenant.ID)
	return nil
}
