/*
Package session implements the equalizer session.

A Session owns the displayed band values and keeps them converging on the
gains of the selected preset. Every user action updates the preset cache
first, then reconciles the display through the transition engine, and only
then talks to the backend. Backend failures are reported but never roll the
local state back.

Pushed notifications from a ports.Notifier are applied with Listen, or fed
manually through HandlePresetsChanged and HandleSelectedPresetChanged.
*/
package session
