// Package components defines the lifecycle contract every platform component
// implements, the kind-tagged registry that constructs them, and the service
// tables that group components into installable bundles with a total
// installation order.
//
// Components never touch the host directly; everything flows through the
// hostops interface carried by the run Context. Lifecycle methods are
// idempotent where the contract requires it: install may be re-run over an
// installed component, configure detects already-initialized state, and
// remove tolerates partially removed state.
package components
