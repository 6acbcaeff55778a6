package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/auth"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/catalog"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/domain"
)

// seedSweets is the starter catalog, prices in rupees.
var seedSweets = []domain.Sweet{
	{Name: "Gulab Jamun", Description: "Soft milk dumplings soaked in rose-flavored syrup", Category: domain.CategoryMilkBased, Price: decimal.RequireFromString("25.00"), Quantity: 100, Unit: "per piece", Brand: "Maharaj Sweets"},
	{Name: "Rasgulla", Description: "Spongy cottage cheese balls in sugar syrup", Category: domain.CategoryMilkBased, Price: decimal.RequireFromString("20.00"), Quantity: 150, Unit: "per piece", Brand: "Bengal Sweets"},
	{Name: "Ras Malai", Description: "Flattened cottage cheese dumplings in thick milk", Category: domain.CategoryMilkBased, Price: decimal.RequireFromString("35.00"), Quantity: 80, Unit: "per piece", Brand: "Haldiram's"},
	{Name: "Kaju Katli", Description: "Diamond-shaped cashew fudge with silver coating", Category: domain.CategoryDryFruit, Price: decimal.RequireFromString("450.00"), Quantity: 50, Unit: "250g", Brand: "Bikano"},
	{Name: "Badam Barfi", Description: "Rich almond fudge square", Category: domain.CategoryDryFruit, Price: decimal.RequireFromString("400.00"), Quantity: 60, Unit: "250g", Brand: "Haldiram's"},
	{Name: "Dry Fruit Laddu", Description: "Round sweet balls made with mixed dry fruits", Category: domain.CategoryDryFruit, Price: decimal.RequireFromString("30.00"), Quantity: 120, Unit: "per piece", Brand: "Maharaj Sweets"},
	{Name: "Jalebi", Description: "Crispy spiral shaped sweet soaked in syrup", Category: domain.CategorySyrupBased, Price: decimal.RequireFromString("180.00"), Quantity: 80, Unit: "250g", Brand: "Local Sweet Shop"},
	{Name: "Imarti", Description: "Flower-shaped lentil sweet in orange syrup", Category: domain.CategorySyrupBased, Price: decimal.RequireFromString("200.00"), Quantity: 70, Unit: "250g", Brand: "Bikano"},
	{Name: "Besan Laddu", Description: "Traditional round sweet made from gram flour", Category: domain.CategoryFlourBased, Price: decimal.RequireFromString("15.00"), Quantity: 200, Unit: "per piece", Brand: "Maharaj Sweets"},
	{Name: "Motichoor Laddu", Description: "Fine gram flour balls sweet", Category: domain.CategoryFlourBased, Price: decimal.RequireFromString("18.00"), Quantity: 180, Unit: "per piece", Brand: "Haldiram's"},
	{Name: "Boondi Laddu", Description: "Sweet made from small fried gram flour balls", Category: domain.CategoryFlourBased, Price: decimal.RequireFromString("16.00"), Quantity: 150, Unit: "per piece", Brand: "Bikano"},
	{Name: "Sandesh", Description: "Delicate Bengali sweet made from fresh cottage cheese", Category: domain.CategoryBengali, Price: decimal.RequireFromString("22.00"), Quantity: 100, Unit: "per piece", Brand: "KC Das"},
	{Name: "Mishti Doi", Description: "Sweet yogurt dessert from Bengal", Category: domain.CategoryBengali, Price: decimal.RequireFromString("45.00"), Quantity: 60, Unit: "per cup", Brand: "Bengal Sweets"},
	{Name: "Mysore Pak", Description: "Buttery sweet from Karnataka", Category: domain.CategorySouthIndian, Price: decimal.RequireFromString("250.00"), Quantity: 80, Unit: "250g", Brand: "Nandini"},
	{Name: "Coconut Barfi", Description: "Sweet coconut fudge squares", Category: domain.CategoryCoconutBased, Price: decimal.RequireFromString("220.00"), Quantity: 90, Unit: "250g", Brand: "Local Sweet Shop"},
}

type seedUser struct {
	username string
	email    string
	password string
	role     auth.Role
}

var seedUsers = []seedUser{
	{"admin", "admin@sweetshop.com", "password", auth.RoleAdmin},
	{"user", "user@sweetshop.com", "password", auth.RoleUser},
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := seedCatalog(ctx, db, logger); err != nil {
		logger.Error("failed to seed catalog", "error", err)
		os.Exit(1)
	}
	if err := seedAccounts(ctx, db, logger); err != nil {
		logger.Error("failed to seed accounts", "error", err)
		os.Exit(1)
	}

	logger.Info("seeding complete")
}

// seedCatalog inserts the starter sweets, skipping names already present
// so re-runs are safe.
func seedCatalog(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	repo := catalog.NewSweetRepository(db)

	for i := range seedSweets {
		sweet := seedSweets[i]
		sweet.MinStockLevel = domain.DefaultMinStockLevel
		sweet.PricingType = domain.PricePerItem
		sweet.IsAvailable = true

		exists, err := repo.ExistsByName(ctx, sweet.Name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		if err := repo.Create(ctx, &sweet); err != nil {
			return err
		}
		logger.Info("created sweet", "name", sweet.Name, "price", sweet.Price)
	}

	return nil
}

func seedAccounts(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	repo := auth.NewUserRepository(db)

	for _, u := range seedUsers {
		exists, err := repo.ExistsByUsername(ctx, u.username)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := &auth.User{
			Username:     u.username,
			Email:        u.email,
			PasswordHash: string(hash),
			Role:         u.role,
		}
		if err := repo.Create(ctx, user); err != nil {
			return err
		}
		logger.Info("created user", "username", u.username, "role", u.role)
	}

	return nil
}
