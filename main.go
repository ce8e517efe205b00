package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"

	"trustbit/cmd"
	"trustbit/config"
	"trustbit/database"
	"trustbit/domain/entities"
	"trustbit/domain/interfaces"
	"trustbit/domain/services"
	"trustbit/infrastructure"
	"trustbit/repository"
)

func main() {
	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error:", err)
		}
		return
	}

	// Check for user administration subcommands
	if len(os.Args) > 1 && os.Args[1] == "create-user" {
		if err := handleCreateUser(); err != nil {
			log.Fatal("User creation error:", err)
		}
		return
	}
	if len(os.Args) > 1 && os.Args[1] == "list-users" {
		if err := handleListUsers(); err != nil {
			log.Fatal("User listing error:", err)
		}
		return
	}
	if len(os.Args) > 1 && os.Args[1] == "set-role" {
		if err := handleSetRole(); err != nil {
			log.Fatal("Role update error:", err)
		}
		return
	}
	if len(os.Args) > 1 && os.Args[1] == "adjust-balance" {
		if err := handleAdjustBalance(); err != nil {
			log.Fatal("Balance adjustment error:", err)
		}
		return
	}

	// Normal service operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Run the application
	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error:", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: trustbit migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

func handleCreateUser() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: trustbit create-user username")
	}
	username := os.Args[2]

	ctx := context.Background()
	cfg := config.Get()
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	uow := adminUnitOfWork(db)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	apiKey := uuid.New().String()
	user, err := uow.UserRepository().Create(ctx, username, apiKey, cfg.StartingBalance)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	fmt.Printf("created user %s (id %s)\napi key: %s\n", user.Username, user.ID, user.APIKey)
	return nil
}

func handleListUsers() error {
	ctx := context.Background()
	cfg := config.Get()
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	uow := adminUnitOfWork(db)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	users, err := uow.UserRepository().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	for _, user := range users {
		fmt.Printf("%s  %-20s %-5s balance=%d\n", user.ID, user.Username, user.Role, user.Balance)
	}
	return nil
}

func handleSetRole() error {
	if len(os.Args) < 4 {
		return fmt.Errorf("usage: trustbit set-role user-id [user|admin]")
	}
	userID, err := uuid.Parse(os.Args[2])
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	role := entities.UserRole(os.Args[3])
	if role != entities.UserRoleUser && role != entities.UserRoleAdmin {
		return fmt.Errorf("unknown role: %s", os.Args[3])
	}

	ctx := context.Background()
	cfg := config.Get()
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	uow := adminUnitOfWork(db)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().SetRole(ctx, userID, role); err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	return uow.Commit()
}

func handleAdjustBalance() error {
	if len(os.Args) < 4 {
		return fmt.Errorf("usage: trustbit adjust-balance user-id amount")
	}
	userID, err := uuid.Parse(os.Args[2])
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	amount, err := strconv.ParseInt(os.Args[3], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	ctx := context.Background()
	cfg := config.Get()
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	uow := adminUnitOfWork(db)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	ledger := services.NewLedgerService(uow.UserRepository(), uow.TransactionRepository(), uow.EventBus())
	if amount >= 0 {
		_, err = ledger.Credit(ctx, userID, amount, "admin adjustment", nil)
	} else {
		_, err = ledger.Debit(ctx, userID, -amount, "admin adjustment", nil)
	}
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	return uow.Commit()
}

// adminUnitOfWork builds a unit of work with a no-op publisher; admin
// commands have no event consumers.
func adminUnitOfWork(db *database.DB) interfaces.UnitOfWork {
	factory := repository.NewUnitOfWorkFactory(db, func() interfaces.TransactionalEventPublisher {
		return infrastructure.NewTransactionalPublisher(infrastructure.NewNoopEventPublisher())
	})
	return factory.Create()
}
