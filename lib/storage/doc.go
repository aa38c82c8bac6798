// Package storage provides the shared record registry used by the settings,
// key and package handlers of an update repository.
//
// # Shared state
//
// A Shared value owns the in-memory record mapping and the jsonstore.Store
// that backs it. Every Storage handle built on the same Shared observes the
// same records, so unrelated components see one consistent view without
// wiring dependencies between them:
//
//	shared, err := storage.NewShared(storage.Options{})
//	a := storage.New(shared)
//	b := storage.New(shared)
//	a.Save("x", 1)
//	v, _ := b.Load("x") // 1
//
// Every Save rewrites the complete document, including records saved through
// other handles. Callers that issue bursts of saves should coalesce them.
//
// # On-disk layout
//
//	<base dir>/
//	└── .go-updater/
//	    └── config.json    # one JSON object, one member per record
//
// Neither Shared nor Storage is safe for concurrent use; callers that share a
// registry across goroutines must serialize Save and Load themselves.
package storage
