package basiceq_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/basiceq"
	"github.com/aretw0/basiceq/pkg/adapters/memory"
	"github.com/aretw0/basiceq/pkg/domain"
)

// ExampleNew selects a preset and edits a band without animation, so the
// displayed gains are final as soon as each call returns.
func ExampleNew() {
	ctx := context.Background()
	eq := basiceq.New(memory.NewBackend(), basiceq.WithDuration(0))

	if err := eq.Sync(ctx); err != nil {
		log.Fatal(err)
	}
	if err := eq.SelectPreset(ctx, "bass_boost"); err != nil {
		log.Fatal(err)
	}
	if err := eq.SetGain(ctx, domain.BandMid, 1.5, true); err != nil {
		log.Fatal(err)
	}

	selected, _ := eq.Selected()
	fmt.Println("selected:", selected.ID)
	for _, b := range domain.Bands() {
		fmt.Printf("%s %s\n", b, domain.FormatGain(eq.Displayed().Get(b)))
	}
	// Output:
	// selected: manual
	// bass +6.0dB
	// mid +1.5dB
	// treble -1.0dB
}
