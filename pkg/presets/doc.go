/*
Package presets implements the Preset Store: a local cache of the preset
collection and the current selection, backed by a ports.Backend.

Reads never touch the backend. Load fetches both the collection and the
selection; Create, Update and Delete write through to the backend. Backend
failures are reported as domain.ErrBackendUnavailable and are never retried here.
*/
package presets
