package main

import (
	"fmt"
	"os"

	"reunite/backend/internal/approval"
	"reunite/backend/internal/campledger"
	"reunite/backend/internal/models"
	"reunite/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	godotenv.Load()
	log := logrus.New()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// No redis needed for the ops CLI.
	storageSvc := storage.NewStorageService(db, nil, log)
	approvalSvc := approval.NewService(storageSvc, log)
	ledger := campledger.NewLedger(storageSvc, log)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: seed-admin, approve, reject, reconcile")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "seed-admin":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin seed-admin <email> <password>")
			os.Exit(1)
		}
		if err := seedAdmin(storageSvc, os.Args[2], os.Args[3]); err != nil {
			log.Fatalf("Error seeding admin: %v", err)
		}
		fmt.Printf("Admin %s created.\n", os.Args[2])

	case "approve":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin approve <volunteer_id> <admin_id>")
			os.Exit(1)
		}
		v, err := approvalSvc.ApproveVolunteer(os.Args[2], os.Args[3])
		if err != nil {
			log.Fatalf("Error approving volunteer: %v", err)
		}
		fmt.Printf("Volunteer %s is now %s.\n", v.ID, v.Status)

	case "reject":
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin reject <volunteer_id> <admin_id> [reason]")
			os.Exit(1)
		}
		reason := ""
		if len(os.Args) > 4 {
			reason = os.Args[4]
		}
		v, err := approvalSvc.RejectVolunteer(os.Args[2], os.Args[3], reason)
		if err != nil {
			log.Fatalf("Error rejecting volunteer: %v", err)
		}
		fmt.Printf("Volunteer %s is now %s.\n", v.ID, v.Status)

	case "reconcile":
		repaired, err := ledger.Reconcile()
		if err != nil {
			log.Fatalf("Error reconciling assignments: %v", err)
		}
		fmt.Printf("Reconciliation complete, %d divergences repaired.\n", repaired)

	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func seedAdmin(s storage.Storage, email, password string) error {
	existing, err := s.GetAdminByEmail(email)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("admin %s already exists", email)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.SaveAdmin(&models.Admin{Email: email, Password: string(hashed)})
}
