package licensing_test

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/licensing"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/store/memory"
)

func Example() {
	ctx := context.Background()

	reg := licensing.New(memory.New(),
		licensing.WithContractID(licensing.NewContractID()),
		licensing.WithIssuer("acme"),
	)
	if err := reg.Start(ctx); err != nil {
		panic(err)
	}
	defer reg.Stop()

	if err := reg.Sign(ctx, "acme"); err != nil {
		panic(err)
	}

	seats, err := reg.Issue(ctx, "acme", issuance.Params{
		Metadata: issuance.Metadata{
			Description:    "Team seats",
			Code:           "SEAT-2024",
			OriginalOwner:  "Acme Corp",
			OriginalSupply: 100,
			AuditTime:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		InitialOwner: "alice",
	})
	if err != nil {
		panic(err)
	}

	_ = reg.Transfer(ctx, seats, "alice", "bob", 30)
	_ = reg.TransferAndAllowReclaim(ctx, seats, "alice", "carol", 20)

	alice, _ := reg.BalanceOf(seats, "alice")
	carol, _ := reg.ReclaimableBalanceOf(seats, "carol")
	fmt.Println(alice, carol)

	_ = reg.Reclaim(ctx, seats, "alice", "carol", 20)
	_ = reg.Destroy(ctx, seats, "alice", 70)

	circulating, _ := reg.CirculatingSupply(seats)
	fmt.Println(circulating)
	// Output:
	// 50 20
	// 30
}
