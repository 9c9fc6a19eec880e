package main

import (
	"context"
	"errors"
	"log"
	"os"

	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/internal/repository/contract"
	"nutria-assistant-be/internal/repository/unitofwork"
	"nutria-assistant-be/internal/service"
	"nutria-assistant-be/pkg/database"
	n "nutria-assistant-be/pkg/nutrition"

	"github.com/joho/godotenv"
)

func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	ctx := context.Background()
	// Products are embedded later by `nutriactl embeddings backfill`.
	catalog := service.NewCatalogService(unitofwork.NewRepositoryFactory(db), nil, nil, logger.NewNopLogger())

	log.Println("Seeding Ingredients...")
	for _, ing := range ingredients {
		err := catalog.CreateIngredient(ctx, ing)
		switch {
		case errors.Is(err, contract.ErrDuplicate):
			log.Printf("Ingredient '%s' already exists, skipping...", ing.Name)
		case err != nil:
			log.Printf("Error creating ingredient '%s': %v", ing.Name, err)
		default:
			log.Printf("Created ingredient: %s (#%d)", ing.Name, ing.Id)
		}
	}

	log.Println("Seeding Products...")
	for _, p := range products {
		existing, err := catalog.FindProductByName(ctx, p.Name)
		if err != nil {
			log.Printf("Error looking up product '%s': %v", p.Name, err)
			continue
		}
		if existing != nil {
			log.Printf("Product '%s' already exists, skipping...", p.Name)
			continue
		}
		if err := catalog.CreateProduct(ctx, p); err != nil {
			log.Printf("Error creating product '%s': %v", p.Name, err)
		} else {
			log.Printf("Created product: %s (#%d)", p.Name, p.Id)
		}
	}

	log.Println("Catalog seeding completed!")
}

// Values per 100 g, rounded from the Brazilian food composition table (TACO).
var ingredients = []*entity.Ingredient{
	{Name: "Farinha de trigo", Category: "cereais", Unit: "g", Nutrients: map[string]float64{
		n.Energy: 360, n.Carbohydrates: 75.1, n.Proteins: 9.8, n.TotalFat: 1.4, n.SaturatedFat: 0.3, n.DietaryFiber: 2.3, n.Sodium: 1,
	}},
	{Name: "Açúcar refinado", Category: "açúcares", Unit: "g", Nutrients: map[string]float64{
		n.Energy: 387, n.Carbohydrates: 99.5, n.TotalSugars: 99.5, n.AddedSugars: 99.5, n.Sodium: 12,
	}},
	{Name: "Ovo de galinha", Category: "ovos", Unit: "g", Nutrients: map[string]float64{
		n.Energy: 143, n.Carbohydrates: 1.6, n.Proteins: 13, n.TotalFat: 8.9, n.SaturatedFat: 2.6, n.Sodium: 168,
	}},
	{Name: "Leite integral", Category: "laticínios", Unit: "ml", Nutrients: map[string]float64{
		n.Energy: 61, n.Carbohydrates: 4.7, n.TotalSugars: 4.7, n.Proteins: 3.2, n.TotalFat: 3.3, n.SaturatedFat: 1.9, n.Sodium: 64,
	}},
	{Name: "Manteiga com sal", Category: "gorduras", Unit: "g", Nutrients: map[string]float64{
		n.Energy: 726, n.Proteins: 0.4, n.TotalFat: 82.4, n.SaturatedFat: 48, n.TransFat: 2.3, n.Sodium: 579,
	}},
	{Name: "Cenoura crua", Category: "hortaliças", Unit: "g", Nutrients: map[string]float64{
		n.Energy: 34, n.Carbohydrates: 7.7, n.TotalSugars: 4.7, n.Proteins: 1.3, n.TotalFat: 0.2, n.DietaryFiber: 3.2, n.Sodium: 3,
	}},
	{Name: "Óleo de soja", Category: "gorduras", Unit: "ml", Nutrients: map[string]float64{
		n.Energy: 884, n.TotalFat: 100, n.SaturatedFat: 15.2,
	}},
	{Name: "Chocolate em pó", Category: "açúcares", Unit: "g", Nutrients: map[string]float64{
		n.Energy: 401, n.Carbohydrates: 91.2, n.TotalSugars: 75, n.AddedSugars: 70, n.Proteins: 4.2, n.TotalFat: 2.2, n.SaturatedFat: 1.2, n.DietaryFiber: 3.9, n.Sodium: 76,
	}},
}

var products = []*entity.Product{
	{Name: "Bolo de cenoura", Description: "Bolo caseiro de cenoura com cobertura de chocolate."},
	{Name: "Pão de ló", Description: "Massa leve de ovos, açúcar e farinha de trigo."},
}
