package recordstore_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hjrent/hjstore/pkg/backend"
	"github.com/hjrent/hjstore/pkg/recordstore"
	"github.com/hjrent/hjstore/pkg/stores"
)

func ExampleStore() {
	ctx := context.Background()

	sqlite, err := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	if err != nil {
		log.Fatal(err)
	}
	defer sqlite.Close()

	if err := sqlite.Init(ctx); err != nil {
		log.Fatal(err)
	}
	if err := sqlite.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	store := recordstore.New(backend.NewClient(sqlite))

	err = store.Set(ctx, recordstore.KeyTenants, []recordstore.Record{
		{"id": "t1", "user": "Li Lei", "house": "A-101"},
	})
	if err != nil {
		log.Fatal(err)
	}

	tenants := store.Get(ctx, recordstore.KeyTenants, []recordstore.Record{}).([]recordstore.Record)
	fmt.Println(tenants[0]["user"], tenants[0]["house"], tenants[0]["stars"])

	fmt.Println(store.Get(ctx, recordstore.KeyAnnounce, "no announcement"))

	// Output:
	// Li Lei A-101 0
	// no announcement
}
