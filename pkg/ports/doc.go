/*
Package ports defines the driven ports (interfaces) of the equalizer core.

These interfaces decouple the preset store and session from concrete backends,
so the same core runs against an in-process backend, a YAML file, or Redis.

# Key Interfaces

  - Backend: the six preset operations of the external backend/bridge service.
  - Notifier: push notifications (presets changed, selection changed).
  - DistributedLocker: serializes backend mutations across replicas.
*/
package ports
