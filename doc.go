// Package licensing provides a license issuance registry for Go applications.
//
// A contract has an issuer, who alone creates and revokes issuances, and a
// root authority, who administers the contract. Each issuance is a batch of
// interchangeable license units with immutable audit metadata. Units can be
// transferred, delegated with a right of recall, reclaimed by whoever
// delegated them, and destroyed by transferring them to the Null address.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/licensing"
//	    "github.com/xraph/licensing/issuance"
//	    "github.com/xraph/licensing/store/memory"
//	)
//
//	reg := licensing.New(memory.New(),
//	    licensing.WithContractID(contractID),
//	    licensing.WithIssuer("acme"),
//	)
//	if err := reg.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Stop()
//
//	_ = reg.Sign(ctx, "acme")
//	id, err := reg.Issue(ctx, "acme", issuance.Params{
//	    Metadata: issuance.Metadata{
//	        Code:           "SEAT-2024",
//	        OriginalSupply: 100,
//	        AuditTime:      auditedAt,
//	    },
//	    InitialOwner: "alice",
//	})
//
// # Ownership Model
//
// Every issuance keeps a balance matrix: balance[x][y] counts units held by
// x that y may reclaim; balance[x][x] is what x owns outright. BalanceOf
// reports both kinds together. Only outright units can be transferred,
// delegated or destroyed, so a holder of delegated units must wait for them
// to be reclaimed.
//
// The sum of the matrix always equals the original supply; destroyed units
// stay in the matrix under the Null address.
//
// # Persistence
//
// The registry persists nothing but an append-only log of records
// (issuance.created, transfer, reclaim, revoke and the contract records
// contract.signed, contract.disabled, authority.changed, fee.changed). Start
// replays the log through the same code paths live operations use. Each
// record carries a per-contract sequence number; two processes writing the
// same contract conflict on it and the loser receives fault.ErrConflict,
// which is safe to retry.
//
// Stores exist for memory, SQLite, PostgreSQL and MongoDB.
//
// # Errors
//
// Errors belong to the classes of the fault package: authorization, state,
// insufficient balance, arithmetic, invalid input, not found and process.
// A failed operation never changes state.
package licensing
