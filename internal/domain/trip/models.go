package trip

// Models lists every persisted row type in migration order.
func Models() []any {
	return []any{
		&ChatSession{},
		&ChatMessage{},
		&Itinerary{},
		&ItineraryActivity{},
		&FinalVideo{},
		&ImageAsset{},
		&CinematicClip{},
	}
}
