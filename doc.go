/*
Package basiceq keeps a three-band equalizer display in step with a preset backend.

A user picks a preset or drags a band; the Equalizer Session updates the selection,
animates the displayed gains towards the new target and persists the change through
a pluggable backend (memory, YAML file or Redis). Backends may also push changes made
elsewhere, which the session reconciles the same way.

# Components

  - Preset Store (pkg/presets): the local mirror of the backend's presets and selection.
  - Transition Engine (pkg/transition): per-band animations with supersede semantics.
  - Equalizer Session (pkg/session): orchestrates both, exposes snapshots to observers.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/basiceq"
		"github.com/aretw0/basiceq/pkg/adapters/memory"
		"github.com/aretw0/basiceq/pkg/domain"
	)

	func main() {
		ctx := context.Background()
		eq := basiceq.New(memory.NewBackend())
		go eq.Engine().Run(ctx)

		if err := eq.Sync(ctx); err != nil {
			log.Fatal(err)
		}
		if err := eq.SelectPreset(ctx, "bass_boost"); err != nil {
			log.Fatal(err)
		}
		if err := eq.SetGain(ctx, domain.BandTreble, 2, false); err != nil {
			log.Fatal(err)
		}
		_ = eq.WaitSettled(ctx)
		log.Println(eq.Displayed())
	}
*/
package basiceq
