package types

import "strings"

// RelationRecord links two entities by id and relation type. The id is
// deterministic over the identifying five-tuple so that re-running relation
// inference on an unchanged entity set reproduces records byte for byte.
type RelationRecord struct {
	ID           string         `json:"id"`
	SourceType   EntityKind     `json:"source_type"`
	SourceID     string         `json:"source_id"`
	TargetType   EntityKind     `json:"target_type"`
	TargetID     string         `json:"target_id"`
	RelationType string         `json:"relation_type"`
	Data         map[string]any `json:"data"`
}

// NewRelation creates a relation record with its deterministic id.
func NewRelation(sourceType EntityKind, sourceID string, targetType EntityKind, targetID, relationType string) *RelationRecord {
	return &RelationRecord{
		ID:           RelationID(sourceType, sourceID, targetType, targetID, relationType),
		SourceType:   sourceType,
		SourceID:     sourceID,
		TargetType:   targetType,
		TargetID:     targetID,
		RelationType: relationType,
		Data:         make(map[string]any),
	}
}

// RelationID derives the record id from the identifying tuple.
func RelationID(sourceType EntityKind, sourceID string, targetType EntityKind, targetID, relationType string) string {
	return strings.Join([]string{
		string(sourceType), sourceID,
		string(targetType), targetID,
		relationType,
	}, ":")
}

// Doc flattens the record into a document for persistence.
func (r *RelationRecord) Doc() map[string]any {
	return map[string]any{
		"id":            r.ID,
		"source_type":   string(r.SourceType),
		"source_id":     r.SourceID,
		"target_type":   string(r.TargetType),
		"target_id":     r.TargetID,
		"relation_type": r.RelationType,
		"data":          r.Data,
	}
}
