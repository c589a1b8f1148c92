package dag

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/models"
)

// NodeExecutor defines the interface for pipeline stage execution.
// Each node wraps a service method and declares where it sits in the order.
type NodeExecutor interface {
	// Name returns the stage id (e.g., "class-simplify")
	Name() models.StageID

	// Descriptor returns the static registration read by the orchestrator.
	Descriptor() models.StageDescriptor

	// Execute runs the node's work for one model kind. Returns an error if
	// the stage fails; the run is aborted.
	Execute(ctx context.Context, ws *models.Workspace, kind models.ModelKind) error
}

// BaseNode provides common functionality for all stage nodes.
type BaseNode struct {
	descriptor models.StageDescriptor
	logger     *zap.Logger
}

// NewBaseNode creates a new base node for the given stage.
func NewBaseNode(descriptor models.StageDescriptor, logger *zap.Logger) *BaseNode {
	return &BaseNode{
		descriptor: descriptor,
		logger:     logger.Named(string(descriptor.ID)),
	}
}

// Name returns the stage id.
func (b *BaseNode) Name() models.StageID {
	return b.descriptor.ID
}

// Descriptor returns the stage registration.
func (b *BaseNode) Descriptor() models.StageDescriptor {
	return b.descriptor
}

// Logger returns the node's logger.
func (b *BaseNode) Logger() *zap.Logger {
	return b.logger
}

// runFields are the log fields shared by every node.
func runFields(ws *models.Workspace, kind models.ModelKind) []zap.Field {
	return []zap.Field{
		zap.String("run_id", ws.RunID.String()),
		zap.String("kind", string(kind)),
	}
}
