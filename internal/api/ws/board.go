package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
)

// handleFrame applies a client command. Unknown or malformed frames are
// ignored; clients get no acknowledgement either way.
func (h *Hub) handleFrame(c Conn, raw []byte) {
	var f domain.Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		log.Debug().Err(err).Str("conn_id", c.ID()).Msg("hub: malformed frame")
		return
	}

	var ref domain.BoardRef
	if len(f.Data) > 0 {
		if err := json.Unmarshal(f.Data, &ref); err != nil {
			log.Debug().Err(err).Str("conn_id", c.ID()).Str("event", f.Event).Msg("hub: malformed board ref")
			return
		}
	}

	switch f.Event {
	case domain.CommandJoinBoard:
		h.Join(c, ref.ProjectID, ref.SprintID)
	case domain.CommandLeaveBoard:
		h.Leave(c, ref.ProjectID, ref.SprintID)
	default:
		log.Debug().Str("conn_id", c.ID()).Str("event", f.Event).Msg("hub: unknown command")
	}
}
