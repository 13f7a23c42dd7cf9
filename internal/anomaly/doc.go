// Package anomaly runs the rule-based detector over the tabular fragments of one file
// and produces alerts of a closed type and severity taxonomy.
//
// Detection is a pure function of the input fragments apart from alert ids and
// creation timestamps. It runs once per file at ingestion or explicit reprocessing,
// never per chat query.
package anomaly
