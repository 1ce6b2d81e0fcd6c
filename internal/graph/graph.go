// Package graph keeps a Neo4j read model of the prerequisite relation
// between skills.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// PrerequisiteGraph stores (:Skill)-[:REQUIRES]->(:Skill) edges.
type PrerequisiteGraph struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// New connects to Neo4j.
func New(uri, user, password string, logger *zap.Logger) (*PrerequisiteGraph, error) {
	auth := neo4j.NoAuth()
	if user != "" {
		auth = neo4j.BasicAuth(user, password, "")
	}
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &PrerequisiteGraph{driver: driver, logger: logger}, nil
}

// Close shuts down the Neo4j driver.
func (g *PrerequisiteGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// Ping verifies the Neo4j connection.
func (g *PrerequisiteGraph) Ping(ctx context.Context) error {
	return g.driver.VerifyConnectivity(ctx)
}

// EnsureConstraints creates the uniqueness constraint on skill ids.
func (g *PrerequisiteGraph) EnsureConstraints(ctx context.Context) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`CREATE CONSTRAINT skill_id IF NOT EXISTS FOR (s:Skill) REQUIRE s.id IS UNIQUE`, nil)
	if err != nil {
		return fmt.Errorf("create skill constraint: %w", err)
	}
	return nil
}

// SyncSkill makes the outgoing REQUIRES edges of skillID match prereqIDs.
func (g *PrerequisiteGraph) SyncSkill(ctx context.Context, skillID, description string, version int, prereqIDs []string) error {
	if prereqIDs == nil {
		prereqIDs = []string{}
	}
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]interface{}{
			"id":      skillID,
			"desc":    description,
			"version": version,
			"prereqs": prereqIDs,
		}
		if _, err := tx.Run(ctx,
			`MERGE (s:Skill {id: $id})
			 SET s.description = $desc, s.version = $version, s.updated_at = datetime()`,
			params); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx,
			`MATCH (s:Skill {id: $id})-[r:REQUIRES]->(p:Skill)
			 WHERE NOT p.id IN $prereqs
			 DELETE r`,
			params); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx,
			`MATCH (s:Skill {id: $id})
			 UNWIND $prereqs AS pid
			 MERGE (p:Skill {id: pid})
			 MERGE (s)-[:REQUIRES]->(p)`,
			params)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("sync skill %s: %w", skillID, err)
	}
	g.logger.Debug("Prerequisite graph synced",
		zap.String("skill_id", skillID), zap.Int("prerequisites", len(prereqIDs)))
	return nil
}

// Prerequisites returns every skill reachable from skillID over REQUIRES
// edges, sorted by id. With transitive false only direct edges are followed.
func (g *PrerequisiteGraph) Prerequisites(ctx context.Context, skillID string, transitive bool) ([]string, error) {
	query := `MATCH (:Skill {id: $id})-[:REQUIRES]->(p:Skill) RETURN DISTINCT p.id AS id ORDER BY id`
	if transitive {
		query = `MATCH (:Skill {id: $id})-[:REQUIRES*1..]->(p:Skill) RETURN DISTINCT p.id AS id ORDER BY id`
	}
	return g.collectIDs(ctx, query, map[string]interface{}{"id": skillID})
}

// Dependents returns the skills that directly require skillID.
func (g *PrerequisiteGraph) Dependents(ctx context.Context, skillID string) ([]string, error) {
	return g.collectIDs(ctx,
		`MATCH (d:Skill)-[:REQUIRES]->(:Skill {id: $id}) RETURN DISTINCT d.id AS id ORDER BY id`,
		map[string]interface{}{"id": skillID})
}

// WouldCreateCycle reports whether adding skillID -REQUIRES-> prereqID would
// close a cycle, including the self edge.
func (g *PrerequisiteGraph) WouldCreateCycle(ctx context.Context, skillID, prereqID string) (bool, error) {
	if skillID == prereqID {
		return true, nil
	}
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH path = (:Skill {id: $prereq})-[:REQUIRES*1..]->(:Skill {id: $skill})
		 RETURN count(path) > 0 AS cyclic`,
		map[string]interface{}{"skill": skillID, "prereq": prereqID})
	if err != nil {
		return false, fmt.Errorf("check cycle %s->%s: %w", skillID, prereqID, err)
	}
	if !result.Next(ctx) {
		return false, result.Err()
	}
	cyclic, _ := result.Record().Get("cyclic")
	b, _ := cyclic.(bool)
	return b, nil
}

func (g *PrerequisiteGraph) collectIDs(ctx context.Context, query string, params map[string]interface{}) ([]string, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("query skill ids: %w", err)
	}
	ids := []string{}
	for result.Next(ctx) {
		id, _ := result.Record().Get("id")
		if s, ok := id.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, result.Err()
}
