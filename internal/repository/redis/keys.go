package redisrepo

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "staydesk:v1"

func KeyRoom(roomID uuid.UUID) string {
	return fmt.Sprintf("%s:room:%s", ns, roomID)
}

func KeyRoomCatalog() string {
	return ns + ":rooms:catalog"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyPaymentLock(bookingID uuid.UUID) string {
	return fmt.Sprintf("%s:lock:payment:%s", ns, bookingID)
}

func ChannelRoomsChanged() string {
	return ns + ":rooms:changed"
}
