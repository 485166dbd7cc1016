// Command apikey manages API credentials. The plaintext secret is printed
// exactly once at creation; only its hash is stored.
//
// Usage:
//
//	apikey create -label "agent one" -permissions read_write [-rate-read 60] [-rate-write 30]
//	apikey list
//	apikey revoke -id 3
//	apikey delete -id 3
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"ai-shopping-gateway/internal/config"
	"ai-shopping-gateway/internal/db"
	"ai-shopping-gateway/internal/domain"
	apikeyrepo "ai-shopping-gateway/internal/repository/apikey"
	authsvc "ai-shopping-gateway/internal/service/auth"
)

func main() {
	logger := log.New(os.Stderr, "[apikey] ", log.LstdFlags|log.LUTC)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	svc := authsvc.New(apikeyrepo.NewPostgres(pool), logger)

	switch os.Args[1] {
	case "create":
		runCreate(ctx, svc, logger, os.Args[2:])
	case "list":
		runList(ctx, svc, logger)
	case "revoke":
		runRevoke(ctx, svc, logger, os.Args[2:])
	case "delete":
		runDelete(ctx, svc, logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: apikey <create|list|revoke|delete> [flags]")
}

func runCreate(ctx context.Context, svc *authsvc.Service, logger *log.Logger, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	label := fs.String("label", "", "human-readable label for the credential")
	permissions := fs.String("permissions", "read", "permission tier: read, read_write, or full")
	rateRead := fs.Int("rate-read", 0, "per-minute read limit override (0 = store default)")
	rateWrite := fs.Int("rate-write", 0, "per-minute write limit override (0 = store default)")
	fs.Parse(args)

	tier := domain.Tier(*permissions)
	if !tier.Valid() {
		logger.Fatalf("invalid permissions %q: use read, read_write, or full", *permissions)
	}

	gen, err := svc.Generate(ctx, *label, tier, *rateRead, *rateWrite)
	if err != nil {
		logger.Fatalf("create credential: %v", err)
	}

	fmt.Printf("id:          %d\n", gen.Key.ID)
	fmt.Printf("label:       %s\n", gen.Key.Label)
	fmt.Printf("permissions: %s\n", gen.Key.Tier)
	fmt.Printf("secret:      %s\n", gen.Secret)
	fmt.Println("\nstore this secret now; it cannot be shown again")
}

func runList(ctx context.Context, svc *authsvc.Service, logger *log.Logger) {
	keys, err := svc.List(ctx)
	if err != nil {
		logger.Fatalf("list credentials: %v", err)
	}
	fmt.Printf("%-5s %-24s %-12s %-8s %s\n", "ID", "LABEL", "PERMISSIONS", "REVOKED", "LAST USED")
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsed != nil {
			lastUsed = k.LastUsed.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-5d %-24s %-12s %-8t %s\n", k.ID, k.Label, k.Tier, k.Revoked, lastUsed)
	}
}

func runRevoke(ctx context.Context, svc *authsvc.Service, logger *log.Logger, args []string) {
	fs := flag.NewFlagSet("revoke", flag.ExitOnError)
	id := fs.Int64("id", 0, "credential id")
	fs.Parse(args)
	if *id <= 0 {
		logger.Fatal("revoke requires -id")
	}
	if err := svc.Revoke(ctx, *id); err != nil {
		logger.Fatalf("revoke %d: %v", *id, err)
	}
	fmt.Printf("credential %d revoked\n", *id)
}

func runDelete(ctx context.Context, svc *authsvc.Service, logger *log.Logger, args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "credential id")
	fs.Parse(args)
	if *id <= 0 {
		logger.Fatal("delete requires -id")
	}
	if err := svc.Delete(ctx, *id); err != nil {
		logger.Fatalf("delete %d: %v", *id, err)
	}
	fmt.Printf("credential %d deleted\n", *id)
}
