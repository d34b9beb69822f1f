/*
Package ports defines the driven ports (interfaces) for the hfsm engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various graph sources, storage backends and lock services.

# Key Interfaces

  - GraphLoader: Responsible for producing the Graph (e.g., from YAML, HCL, Loam or Memory).
  - StateStore: Responsible for persisting and loading machine FSMState.
  - DistributedLocker: Provides distributed locking for handling concurrent machine access.
  - Engine: The stateless resolution core as seen by adapters.

The contract suites (RunStateStoreContract, RunGraphLoaderContract) let every
adapter prove it honors these interfaces.
*/
package ports
