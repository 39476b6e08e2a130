package handlers

import (
	"github.com/ternarybob/arbor"

	"github.com/remixlab/remixd/internal/interfaces"
	"github.com/remixlab/remixd/internal/models"
)

// JobController is the slice of the job registry the dispatcher drives.
type JobController interface {
	Init(identifier, variant string, conn interfaces.Connection) bool
	Cancel(identifier, variant string, conn interfaces.Connection)
	Snapshot(identifier, variant string) *models.StatusSnapshot
}

// IdentifierResolver canonicalizes a raw client-supplied identifier (a URL or
// bare id) into the key the registry tracks jobs under.
type IdentifierResolver interface {
	Resolve(raw string) (string, error)
}

// Dispatcher decodes inbound client messages, routes them to the job
// registry, and translates failures into client-visible error replies. An
// invalid message only ever affects the sender: the reply goes to that
// connection alone and other clients' jobs are untouched.
type Dispatcher struct {
	registry JobController
	resolver IdentifierResolver
	logger   arbor.ILogger
}

// NewDispatcher creates a dispatcher bound to a registry and resolver.
func NewDispatcher(registry JobController, resolver IdentifierResolver, logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		resolver: resolver,
		logger:   logger,
	}
}

// Dispatch handles one raw inbound message from client.
func (d *Dispatcher) Dispatch(client interfaces.Connection, raw []byte) {
	msg, err := models.DecodeInbound(raw)
	if err != nil {
		d.logger.Debug().Err(err).Str("client_id", client.ID()).Msg("Rejected invalid message")
		d.sendError(client, err.Error(), models.ErrorCodeValidation)
		return
	}

	identifier, err := d.resolver.Resolve(msg.Data.Identifier)
	if err != nil {
		d.logger.Debug().Err(err).Str("client_id", client.ID()).Msg("Rejected unresolvable identifier")
		d.sendError(client, err.Error(), models.ErrorCodeValidation)
		return
	}
	variant := msg.Data.Variant

	switch msg.Op {
	case models.OpInit:
		if d.registry.Init(identifier, variant, client) {
			return
		}
		// Nothing new was started: catch this subscriber up with the
		// current snapshot, without re-notifying anyone else.
		d.sendSnapshot(client, identifier, variant)

	case models.OpStatus:
		d.sendSnapshot(client, identifier, variant)

	case models.OpCancel:
		d.registry.Cancel(identifier, variant, client)
	}
}

func (d *Dispatcher) sendSnapshot(client interfaces.Connection, identifier, variant string) {
	snapshot := d.registry.Snapshot(identifier, variant)
	if snapshot == nil {
		return
	}
	if err := client.SendJSON(models.NewStatusMessage(snapshot)); err != nil {
		d.logger.Warn().Err(err).Str("client_id", client.ID()).Msg("Failed to send snapshot")
	}
}

func (d *Dispatcher) sendError(client interfaces.Connection, message string, code int) {
	if err := client.SendJSON(models.NewErrorMessage(message, code, false)); err != nil {
		d.logger.Warn().Err(err).Str("client_id", client.ID()).Msg("Failed to send error reply")
	}
}
