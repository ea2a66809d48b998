/*
Package domain contains the core models of the equalizer settings surface.

It defines the closed set of bands, gain maps, presets and the notifications
exchanged with a preset backend. The package is kept pure and free of I/O so the
store, session and adapters can share it without import cycles.

# Key Entities

  - Band: one adjustable frequency segment (bass, mid, treble).
  - GainMap: one gain value in decibels per Band, never sparse.
  - Preset: a named, identified GainMap. Default presets cannot be deleted.
  - PresetCollection: the ordered list of presets shown to the user.
  - Notification: a change pushed by the backend (presets or selection).
*/
package domain
