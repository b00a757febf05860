// mdk is the Marine-observatory Development Kit. It reconciles loosely
// structured tabular exports describing a large inventory of physical assets
// (arrays, sites, platforms, nodes, instruments, agents) into a single
// consistent typed object graph keyed by reference designator.
//
// The center of the kit is the extraction pipeline:
//
// 1. Catalog / Source
//
//    A mdk.Catalog knows where the per-category exports and the mapping
//    workbook tabs live - local files, S3 buckets, Kafka-fed spool
//    directories - and hands out a mdk.Source of rows per category. A row is
//    just a map from column name to string value; it is not the source's job
//    to interpret it.
//
// 2. Loader
//
//    The Loader runs one parser per category against the shared Graph. All
//    mutation funnels through the Graph's attribute-merge primitive, which
//    detects conflicting and redundant writes instead of silently clobbering
//    them, so categories may arrive partial, redundant and out of dependency
//    order. After parsing, ordered post-processing passes backfill names,
//    propagate bounding boxes up the site hierarchy, resolve deployment
//    dates, and expand clone assets from their templates. A reference
//    validator then sweeps the finished graph for dangling cross-references.
//
// 3. Analyzer
//
//    Given a cutoff date, the analyzer partitions the graph into deployed
//    and postponed assets and renders a hierarchical readiness report.
//
// 4. Registry
//
//    The registry subpackage persists the finished graph as documents in
//    boltdb or leveldb, and applies the tombstone decisions the engine
//    computes for stale documents.
//
// Everything is deterministic, single-threaded batch processing over fully
// materialized in-memory rows; one Loader owns one Graph for one extraction.
package mdk
