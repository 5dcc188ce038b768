package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dyseo521/baepdoongi-bot-sub000/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/create_operator <username> <password> [role]")
		os.Exit(2)
	}
	username := os.Args[1]
	password := os.Args[2]
	roleName := "operator"
	if len(os.Args) > 3 {
		roleName = os.Args[3]
	}

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	// ensure role exists
	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		role = models.Role{Name: roleName, Description: roleName + " account"}
		db.Create(&role)
	}

	// check existing
	var existing models.Operator
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		fmt.Printf("operator %s already exists (id=%d)\n", username, existing.ID)
		os.Exit(0)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	rid := role.ID
	op := models.Operator{Username: username, HashedPassword: hpw, RoleID: &rid}
	if err := db.Create(&op).Error; err != nil {
		log.Fatalf("failed to create operator: %v", err)
	}
	fmt.Printf("created operator %s id=%d role=%s\n", username, op.ID, roleName)
}
