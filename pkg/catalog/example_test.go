package catalog_test

import (
	"fmt"
	"log"

	"github.com/ssargent/catbuf/pkg/catalog"
)

func ExampleNewMosaicPropertyBuilder() {
	p, err := catalog.NewMosaicPropertyBuilder(catalog.MosaicPropertyDuration, 5)
	if err != nil {
		log.Fatal(err)
	}

	data, err := p.Serialize()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%x\n", data)

	back, err := catalog.LoadMosaicPropertyBuilder(data)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(back.ID(), back.Value())

	// Output:
	// 020500000000000000
	// DURATION 5
}

func ExampleRegistry_LoadTransaction() {
	tx, err := catalog.NewTransferTransactionBuilder(
		catalog.Header{Version: 1, Type: catalog.EntityTypeTransfer, Fee: 10, Deadline: 100},
		nil,
		[]byte("hello"),
		catalog.NewUnresolvedMosaicBuilder(0x85BBEA6CC462B244, 1000),
	)
	if err != nil {
		log.Fatal(err)
	}
	data, err := tx.Serialize()
	if err != nil {
		log.Fatal(err)
	}

	rec, err := catalog.Default().LoadTransaction(data)
	if err != nil {
		log.Fatal(err)
	}
	size, _ := rec.Uint("size")
	count, _ := rec.Uint("mosaicsCount")
	fmt.Println(rec.Schema().Name(), size, count)

	// Output:
	// TransferTransaction 169 1
}
