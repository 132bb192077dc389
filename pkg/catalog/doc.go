// Package catalog defines the subscription plan catalog: the closed set of
// tiers, the feature vocabulary, and per-plan quotas.
//
// Plans are loaded through a Source (compiled-in defaults or a YAML file),
// validated once at startup, and immutable afterwards. Validation guarantees
// exactly one default plan and that every feature key known anywhere in the
// catalog resolves to a descriptor on every plan, so cross-plan comparison
// never hits a missing key.
package catalog
