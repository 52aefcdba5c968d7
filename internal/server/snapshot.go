package server

func playerToPayload(p *Player) playerPayload {
	return playerPayload{
		ID:             p.ID,
		Name:           p.Name,
		Color:          p.Color,
		IsHost:         p.IsHost,
		IsAlive:        p.IsAlive,
		Connected:      p.Connected,
		Position:       p.Position,
		Velocity:       p.Velocity,
		CanDoTaskToday: p.CanDoTaskToday,
	}
}

func playersPayload(room *Room) []playerPayload {
	players := make([]playerPayload, 0, len(room.Players))
	for i := range room.Players {
		players = append(players, playerToPayload(&room.Players[i]))
	}
	return players
}

// revealPayload exposes roles; only ever sent with game_over.
func revealPayload(room *Room) []playerRevealPayload {
	players := make([]playerRevealPayload, 0, len(room.Players))
	for i := range room.Players {
		p := &room.Players[i]
		players = append(players, playerRevealPayload{
			ID:      p.ID,
			Name:    p.Name,
			Color:   p.Color,
			Role:    p.Role,
			IsAlive: p.IsAlive,
		})
	}
	return players
}

func gameStartPayload(room *Room) gameStartedPayload {
	m := mapByName(room.Settings.Map)
	return gameStartedPayload{
		Players:   playersPayload(room),
		Settings:  room.Settings,
		Tasks:     room.Tasks,
		Vents:     m.Vents,
		Day:       room.CurrentDay,
		TotalDays: room.TotalDays,
	}
}
