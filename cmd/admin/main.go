// Command admin grants, revokes and lists forum administrators.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/models"
	"forum/internal/seed"

	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin grant <username>   - Grant ROLE_ADMIN")
	fmt.Println("  go run ./cmd/admin revoke <username>  - Revoke ROLE_ADMIN")
	fmt.Println("  go run ./cmd/admin list               - List all admins")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch command := os.Args[1]; command {
	case "grant", "revoke":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		setAdmin(ctx, db, os.Args[2], command == "grant")
	case "list":
		listAdmins(ctx, db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func setAdmin(ctx context.Context, db *gorm.DB, username string, grant bool) {
	users := seed.NewServices(db, nil).Users
	if err := users.EnsureRoles(ctx, models.RoleUser, models.RoleAdmin); err != nil {
		log.Fatalf("Failed to ensure roles: %v", err)
	}

	user, err := users.SetAdmin(ctx, username, grant)
	if errors.Is(err, models.ErrNotFound) {
		fmt.Printf("User %s not found\n", username)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Failed to update roles: %v", err)
	}

	if grant {
		fmt.Printf("Granted %s to %s (ID: %d)\n", models.RoleAdmin, user.Username, user.ID)
	} else {
		fmt.Printf("Revoked %s from %s (ID: %d)\n", models.RoleAdmin, user.Username, user.ID)
	}
}

func listAdmins(ctx context.Context, db *gorm.DB) {
	var admins []models.User
	err := db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", models.RoleAdmin).
		Order("users.username").
		Find(&admins).Error
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found")
		return
	}
	for _, admin := range admins {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", admin.ID, admin.Username, admin.Email)
	}
}
