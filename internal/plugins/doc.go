// Package plugins implements the plugin model: on-disk folders carrying
// a manifest and settings, paired with compiled-in providers that supply
// hooks and tools at activation time.
//
// Discovery scans the plugin root one level deep. Providers register
// themselves under their plugin id, following the database/sql driver
// pattern; a folder with no registered provider still activates and
// contributes its manifest and settings. The orchestrator in
// internal/core/services aggregates active plugins into a dispatchable
// hook/tool snapshot.
package plugins
