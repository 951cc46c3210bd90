// Package notify builds and delivers the responsible-party e-mail for an
// ingested event. Delivery is behind the Notifier interface so the
// orchestrator never depends on a concrete transport.
package notify

import (
	"context"
	"fmt"
)

// Notifier delivers a message to an address. A delivery failure must surface
// as an error; it is never swallowed.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// MapsLink builds a Google Maps search link from the raw coordinate strings
// exactly as supplied by the caller.
func MapsLink(lat, lng string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + lat + "," + lng
}

// Message is the rendered notification content for one event.
type Message struct {
	Subject  string
	Body     string
	MapsLink string
}

// BuildMessage renders the notification for a new event in the region.
// Wording follows the monitoring system's established Portuguese template.
func BuildMessage(regionID, timestamp, lat, lng string) Message {
	link := MapsLink(lat, lng)
	body := fmt.Sprintf("Olá,\n\n"+
		"Foi registrado um novo evento na região %s.\n\n"+
		"Dados recebidos:\n"+
		" - Timestamp (Brasília): %s\n"+
		" - Latitude: %s\n"+
		" - Longitude: %s\n"+
		" - Google Maps: %s\n\n"+
		"Atenciosamente,\n"+
		"Sistema de Monitoramento",
		regionID, timestamp, lat, lng, link)
	return Message{
		Subject:  "Novo registro na região " + regionID,
		Body:     body,
		MapsLink: link,
	}
}
