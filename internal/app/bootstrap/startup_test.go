package bootstrap

import (
	"context"
	"testing"

	"github.com/dalemusser/soar/internal/app/system/authprovider"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/dalemusser/soar/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validAppConfig() AppConfig {
	return AppConfig{
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "soar_test",
		SessionKey:    "0123456789abcdef0123456789abcdef",
		CSRFKey:       "fedcba9876543210fedcba9876543210",
		AuthProvider:  ProviderMemory,
		AuditLogAuth:  "all",
		AuditLogAdmin: "db",
	}
}

func TestEnsureStaff_GrantsExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	u := fx.CreateUser(ctx, "adviser@school.edu", "BSCS")

	if err := ensureStaff(ctx, DBDeps{MongoDatabase: db}, "  Adviser@School.edu ", testLogger()); err != nil {
		t.Fatalf("ensureStaff failed: %v", err)
	}

	var got models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": u.ID}).Decode(&got); err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !got.IsStaff {
		t.Error("expected user to be staff")
	}
}

func TestEnsureStaff_UnregisteredIsNotAnError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureStaff(ctx, DBDeps{MongoDatabase: db}, "nobody@school.edu", testLogger()); err != nil {
		t.Fatalf("ensureStaff returned error for unregistered email: %v", err)
	}
	n, err := db.Collection("users").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no users to be created, got %d", n)
	}
}

func TestEnsureStaff_EmptyEmailSkips(t *testing.T) {
	if err := ensureStaff(context.Background(), DBDeps{}, "   ", testLogger()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid memory in dev", dev, func(*AppConfig) {}, false},
		{"memory rejected in prod", prod, func(*AppConfig) {}, true},
		{"gotrue valid", prod, func(c *AppConfig) {
			c.AuthProvider = ProviderGoTrue
			c.AuthURL = "https://project.supabase.co/auth/v1"
			c.AuthAPIKey = "anon"
		}, false},
		{"gotrue missing key", dev, func(c *AppConfig) {
			c.AuthProvider = ProviderGoTrue
			c.AuthURL = "https://project.supabase.co/auth/v1"
		}, true},
		{"gotrue bad url", dev, func(c *AppConfig) {
			c.AuthProvider = ProviderGoTrue
			c.AuthURL = "project.supabase.co"
			c.AuthAPIKey = "anon"
		}, true},
		{"unknown provider", dev, func(c *AppConfig) { c.AuthProvider = "ldap" }, true},
		{"short session key", dev, func(c *AppConfig) { c.SessionKey = "short" }, true},
		{"short csrf key", dev, func(c *AppConfig) { c.CSRFKey = "short" }, true},
		{"domain with at sign", dev, func(c *AppConfig) { c.InstitutionEmailDomain = "@school.edu" }, true},
		{"bare domain", dev, func(c *AppConfig) { c.InstitutionEmailDomain = "school.edu" }, false},
		{"bad audit destination", dev, func(c *AppConfig) { c.AuditLogAdmin = "syslog" }, true},
		{"empty audit destination", dev, func(c *AppConfig) { c.AuditLogAuth = "" }, false},
		{"throttling disabled", dev, func(c *AppConfig) { c.LoginIPLimit, c.RegisterIPLimit = 0, 0 }, false},
		{"negative login limit", dev, func(c *AppConfig) { c.LoginEmailLimit = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAppConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(tt.core, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewAuthProvider(t *testing.T) {
	cfg := validAppConfig()
	cfg.AuthMemoryAutoConfirm = true

	p, err := newAuthProvider(cfg, testLogger())
	if err != nil {
		t.Fatalf("memory provider: %v", err)
	}
	m, ok := p.(*authprovider.Memory)
	if !ok {
		t.Fatalf("expected *authprovider.Memory, got %T", p)
	}
	if !m.AutoConfirm {
		t.Error("expected AutoConfirm to carry through")
	}

	cfg.AuthProvider = ProviderGoTrue
	cfg.AuthURL = "https://project.supabase.co/auth/v1"
	cfg.AuthAPIKey = "anon"
	p, err = newAuthProvider(cfg, testLogger())
	if err != nil {
		t.Fatalf("gotrue provider: %v", err)
	}
	if _, ok := p.(*authprovider.GoTrue); !ok {
		t.Fatalf("expected *authprovider.GoTrue, got %T", p)
	}

	cfg.AuthProvider = "ldap"
	if _, err := newAuthProvider(cfg, testLogger()); err == nil {
		t.Error("expected error for unknown provider")
	}
}
