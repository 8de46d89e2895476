package dispatch

type template struct {
	subject string
	body    string
}

var templates = map[string]template{
	"BOOKING_CREATED": {
		subject: "Booking received",
		body:    "We received your grooming request and will confirm it shortly.",
	},
	"BOOKING_APPROVED": {
		subject: "Booking approved",
		body:    "Your grooming appointment is confirmed. The mobile unit will come to your address.",
	},
	"BOOKING_REJECTED": {
		subject: "Booking not available",
		body:    "We could not take your grooming request for the selected slot. Please pick another time.",
	},
	"BOOKING_ON_ROUTE": {
		subject: "Groomer on the way",
		body:    "The mobile grooming unit is on route to your address.",
	},
	"BOOKING_COMPLETED": {
		subject: "Grooming completed",
		body:    "Today's grooming session is done. Thanks for trusting us with your pet.",
	},
	"BOOKING_RESCHEDULED": {
		subject: "Booking rescheduled",
		body:    "Your grooming appointment was moved and is pending a new confirmation.",
	},
	"BOOKING_CANCELED": {
		subject: "Booking canceled",
		body:    "Your grooming appointment was canceled.",
	},
}

func messageFor(event string) template {
	if t, ok := templates[event]; ok {
		return t
	}
	return template{subject: "Booking update", body: "There is an update on your grooming appointment."}
}
