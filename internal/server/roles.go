package server

import (
	"math/rand"

	"github.com/google/uuid"
)

// assignRoles marks impostors and then matches special identities among the
// remaining crewmates. At most one player per special role, resolved in a
// fixed order so the outcome is deterministic given the shuffle.
func assignRoles(room *Room) {
	for i := range room.Players {
		room.Players[i].Role = roleCrewmate
		room.Players[i].Capabilities = nil
	}

	order := rand.Perm(len(room.Players))
	impostors := impostorCount(len(room.Players), room.Settings.ImpostorCount)
	for _, idx := range order[:impostors] {
		room.Players[idx].Role = roleImpostor
	}

	assignSpecial(room, specialIDMedium, roleMedium)
	assignSpecial(room, specialIDGhostThief, roleGhostThief)
	assignSpecial(room, specialIDClown, roleClown)

	for i := range room.Players {
		if room.Players[i].Role == roleGhostThief {
			room.Players[i].grantCapability(capDiscoverRoles)
		}
	}
}

// assignSpecial upgrades the first non-impostor carrying the magic id.
func assignSpecial(room *Room, specialID, role string) {
	for i := range room.Players {
		p := &room.Players[i]
		if p.SpecialID == specialID && p.Role == roleCrewmate {
			p.Role = role
			return
		}
	}
}

// impostorCount caps the configured count so impostors never reach a third
// of the lobby.
func impostorCount(players, configured int) int {
	limit := players / 3
	if limit < 1 {
		limit = 1
	}
	if configured < limit {
		return configured
	}
	return limit
}

// generateTasks builds the shared task pool for a game from the map's spots:
// common tasks are shared locations, long and short tasks are per-player.
func generateTasks(room *Room) {
	m := mapByName(room.Settings.Map)
	room.Tasks = nil

	spotsByClass := map[string][]taskSpot{}
	for _, spot := range m.TaskSpots {
		spotsByClass[spot.Class] = append(spotsByClass[spot.Class], spot)
	}
	for class := range spotsByClass {
		spots := spotsByClass[class]
		rand.Shuffle(len(spots), func(i, j int) {
			spots[i], spots[j] = spots[j], spots[i]
		})
	}

	for i := range room.Players {
		p := &room.Players[i]
		p.TasksAssigned = nil
		p.TasksCompleted = nil
		if p.Role == roleImpostor {
			continue
		}
		addPlayerTasks(room, p, spotsByClass[taskClassCommon], room.Settings.CommonTasks)
		addPlayerTasks(room, p, spotsByClass[taskClassLong], room.Settings.LongTasks)
		addPlayerTasks(room, p, spotsByClass[taskClassShort], room.Settings.ShortTasks)
	}
}

func addPlayerTasks(room *Room, p *Player, spots []taskSpot, count int) {
	if count > len(spots) {
		count = len(spots)
	}
	for _, spot := range spots[:count] {
		task := Task{
			ID:         uuid.NewString(),
			Type:       spot.Type,
			Zone:       spot.Zone,
			Position:   spot.Position,
			AssignedTo: p.ID,
		}
		room.Tasks = append(room.Tasks, task)
		p.TasksAssigned = append(p.TasksAssigned, task.ID)
	}
}
