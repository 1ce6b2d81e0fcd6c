// Package e2e runs the HTTP API against real Postgres, Neo4j and Redis
// containers. Run with -tags e2e.
package e2e
