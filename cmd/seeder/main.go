//cmd/seeder/main.go
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	seedFiles := []string{
		"seed/schema.sql",
		"seed/users.sql",
	}

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", file, err)
		}

		_, err = db.Exec(string(content))
		if err != nil {
			log.Fatalf("failed to execute %s: %v", file, err)
		}
		fmt.Printf("Seeded: %s\n", file)
	}

	if err := ensureDefaultAdmin(db); err != nil {
		log.Fatalf("failed to create default admin: %v", err)
	}

	fmt.Println("Database seeding completed successfully!")
}

// ensureDefaultAdmin creates the bootstrap superadmin account if it does not
// exist yet. Credentials come from the environment so they never land in SQL.
func ensureDefaultAdmin(db *sql.DB) error {
	username := os.Getenv("ADMIN_DEFAULT_USERNAME")
	password := os.Getenv("ADMIN_DEFAULT_PASSWORD")
	if username == "" || password == "" {
		fmt.Println("ADMIN_DEFAULT_USERNAME/ADMIN_DEFAULT_PASSWORD not set, skipping admin bootstrap")
		return nil
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM admin_users WHERE username = $1`, username).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		fmt.Printf("Admin %q already exists, skipping\n", username)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = db.Exec(
		`INSERT INTO admin_users (username, email, password_hash, role, is_active) VALUES ($1, $2, $3, 'superadmin', TRUE)`,
		username, username+"@localhost", string(hash),
	)
	if err != nil {
		return err
	}
	fmt.Printf("Created superadmin %q\n", username)
	return nil
}
