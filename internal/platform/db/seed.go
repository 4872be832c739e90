package db

import (
	"context"
	"fmt"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/identity"
)

// DemoAccount is one of the accounts offered on the login screen of a demo install.
type DemoAccount struct {
	Identifier  string
	DisplayName string
	Rank        access.Rank
}

var DemoAccounts = []DemoAccount{
	{Identifier: "admin", DisplayName: "Administrador", Rank: 5},
	{Identifier: "gerente", DisplayName: "Gerente de RH", Rank: 3},
	{Identifier: "operador", DisplayName: "Operador", Rank: 2},
	{Identifier: "funcionario", DisplayName: "Funcionário", Rank: 1},
}

type accountUpserter interface {
	Upsert(ctx context.Context, acct identity.Account) (string, error)
}

// SeedDemoAccounts creates the demo accounts, keeping existing passwords.
func SeedDemoAccounts(ctx context.Context, accounts accountUpserter, password string) error {
	if password == "" {
		return fmt.Errorf("demo password is required")
	}
	hash, err := identity.HashPassword(password)
	if err != nil {
		return err
	}
	for _, demo := range DemoAccounts {
		if _, err := accounts.Upsert(ctx, identity.Account{
			Identifier:   demo.Identifier,
			DisplayName:  demo.DisplayName,
			Rank:         demo.Rank,
			PasswordHash: hash,
			Status:       identity.StatusActive,
		}); err != nil {
			return fmt.Errorf("seed %s: %w", demo.Identifier, err)
		}
	}
	return nil
}
