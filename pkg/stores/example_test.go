package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hjrent/hjstore/pkg/backend"
	"github.com/hjrent/hjstore/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            ":memory:", // Use in-memory database for example
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}

	// Create the record tables
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	defer store.Close()

	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_Execute demonstrates querying the store through a backend client.
func ExampleSQLiteStore_Execute() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	client := backend.NewClient(store)

	_, err := client.From("settings").
		Upsert([]backend.Row{{"key": "hj_announce", "value": "Water off on Friday"}}, "key").
		Execute(ctx)
	if err != nil {
		log.Fatal(err)
	}

	rows, err := client.From("settings").Select("value").Eq("key", "hj_announce").Single().Execute(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(rows[0]["value"])
	// Output: Water off on Friday
}
