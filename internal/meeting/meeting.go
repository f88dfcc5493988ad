// Package meeting provides the built-in meeting-link collaborator: a
// generator of unique meeting room URLs for virtual reservations. A real
// calendar integration can replace it behind service.MeetingScheduler.
package meeting

import (
	"context"
	"fmt"
	"strings"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/service"
	"github.com/google/uuid"
)

// RoomLinker builds meeting links under a base URL, one random room per
// reservation. In-person reservations get no link.
type RoomLinker struct {
	baseURL string
}

func NewRoomLinker(baseURL string) *RoomLinker {
	return &RoomLinker{baseURL: strings.TrimRight(baseURL, "/")}
}

var _ service.MeetingScheduler = (*RoomLinker)(nil)

func (l *RoomLinker) ScheduleMeeting(_ context.Context, req service.MeetingRequest) (string, error) {
	if !strings.EqualFold(req.Modality, "virtual") {
		return "", nil
	}

	return fmt.Sprintf("%s/tutouis-%s", l.baseURL, uuid.NewString()), nil
}
