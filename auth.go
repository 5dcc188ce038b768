package main

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dyseo521/baepdoongi-bot-sub000/models"
)

// RegisterOperator creates an operator account with the reviewer role.
func RegisterOperator(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username required")
	}
	if len(password) < 6 { // basic password policy
		return fmt.Errorf("password too short (min 6)")
	}
	// pre-check existing (optimistic)
	var existing models.Operator
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return fmt.Errorf("operator already exists")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	// ensure role exists (idempotent)
	var role models.Role
	if err := db.Where("name = ?", "operator").First(&role).Error; err != nil {
		role = models.Role{Name: "operator", Description: "match reviewer"}
		if err2 := db.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err2 != nil {
			return fmt.Errorf("failed to ensure operator role: %v", err2)
		}
	}
	rid := role.ID
	op := models.Operator{Username: username, HashedPassword: hashedPassword, RoleID: &rid}
	if err := db.Create(&op).Error; err != nil {
		if isUniqueConstraintError(err) { // race condition after initial check
			return fmt.Errorf("operator already exists")
		}
		return err
	}
	return nil
}

// Authenticate verifies operator credentials.
func Authenticate(username, password string) (models.Operator, error) {
	username = strings.TrimSpace(username)
	var op models.Operator
	if err := db.Where("username = ?", username).First(&op).Error; err != nil {
		return models.Operator{}, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(op.HashedPassword, []byte(password)); err != nil {
		return models.Operator{}, fmt.Errorf("invalid credentials")
	}
	return op, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
