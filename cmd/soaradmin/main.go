// Command soaradmin seeds and maintains SOAR data directly in MongoDB:
// programs, organizations, staff grants and memberships.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/soar/internal/app/store/audit"
	"github.com/dalemusser/soar/internal/app/system/auditlog"
	"github.com/dalemusser/soar/internal/app/system/indexes"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var Version = "dev"

type globalOpts struct {
	mongoURI string
	database string
	timeout  time.Duration
}

func main() {
	opts := &globalOpts{}

	rootCmd := &cobra.Command{
		Use:           "soaradmin",
		Short:         "SOAR administration: programs, organizations, staff and memberships",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.mongoURI, "mongo-uri", envOr("SOAR_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&opts.database, "db", envOr("SOAR_MONGO_DATABASE", "soar"), "MongoDB database name")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Deadline for the whole command")

	rootCmd.AddCommand(programCmd(opts))
	rootCmd.AddCommand(orgCmd(opts))
	rootCmd.AddCommand(userCmd(opts))
	rootCmd.AddCommand(memberCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// env is what each subcommand works with.
type env struct {
	db    *mongo.Database
	audit *auditlog.Logger
}

// withDB connects, ensures indexes, runs fn and disconnects. Admin changes
// are audited to MongoDB and the console.
func withDB(cmd *cobra.Command, opts *globalOpts, fn func(ctx context.Context, e env) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.mongoURI).SetAppName("soaradmin"))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(opts.database)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return fn(ctx, env{
		db:    db,
		audit: auditlog.New(audit.New(db), logger, auditlog.Config{Admin: auditlog.DestAll}),
	})
}
