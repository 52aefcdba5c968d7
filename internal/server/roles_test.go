package server

import "testing"

func TestImpostorCount(t *testing.T) {
	cases := []struct {
		players, configured, want int
	}{
		{4, 1, 1},
		{4, 2, 1},
		{6, 2, 2},
		{9, 2, 2},
		{9, 3, 3},
		{15, 3, 3},
		{15, 5, 5},
	}
	for _, tc := range cases {
		if got := impostorCount(tc.players, tc.configured); got != tc.want {
			t.Errorf("impostorCount(%d, %d) = %d, want %d", tc.players, tc.configured, got, tc.want)
		}
	}
}

func TestAssignRolesImpostorCount(t *testing.T) {
	store := NewStore()
	room, _ := store.CreateRoom("p0", "", "")
	for i := 1; i < 6; i++ {
		store.AddPlayer(room.Code, "p"+string(rune('0'+i)), "", "")
	}
	room.Settings.ImpostorCount = 2

	assignRoles(room)

	impostors := 0
	for i := range room.Players {
		if room.Players[i].Role == roleImpostor {
			impostors++
		}
	}
	if impostors != 2 {
		t.Errorf("impostors = %d, want 2", impostors)
	}
}

func TestAssignRolesSpecialIdentities(t *testing.T) {
	store := NewStore()
	room, _ := store.CreateRoom("host", "", "")
	store.AddPlayer(room.Code, "medium", specialIDMedium, "")
	store.AddPlayer(room.Code, "thief", specialIDGhostThief, "")
	store.AddPlayer(room.Code, "clown", specialIDClown, "")
	store.AddPlayer(room.Code, "extra1", "", "")
	store.AddPlayer(room.Code, "extra2", "", "")
	room.Settings.ImpostorCount = 1

	assignRoles(room)

	for i := range room.Players {
		p := &room.Players[i]
		if p.Role == roleImpostor {
			continue
		}
		switch p.SpecialID {
		case specialIDMedium:
			if p.Role != roleMedium {
				t.Errorf("medium carrier got role %s", p.Role)
			}
		case specialIDGhostThief:
			if p.Role != roleGhostThief {
				t.Errorf("ghost thief carrier got role %s", p.Role)
			}
			if !p.hasCapability(capDiscoverRoles) {
				t.Error("ghost thief missing discover capability")
			}
		case specialIDClown:
			if p.Role != roleClown {
				t.Errorf("clown carrier got role %s", p.Role)
			}
		default:
			if p.Role != roleCrewmate {
				t.Errorf("plain player got role %s", p.Role)
			}
		}
	}
}

func TestAssignRolesDuplicateSpecialID(t *testing.T) {
	store := NewStore()
	room, _ := store.CreateRoom("a", specialIDMedium, "")
	store.AddPlayer(room.Code, "b", specialIDMedium, "")
	store.AddPlayer(room.Code, "c", "", "")
	store.AddPlayer(room.Code, "d", "", "")
	room.Settings.ImpostorCount = 1

	assignRoles(room)

	mediums := 0
	for i := range room.Players {
		if room.Players[i].Role == roleMedium {
			mediums++
		}
	}
	if mediums > 1 {
		t.Errorf("mediums = %d, want at most 1", mediums)
	}
}

func TestGenerateTasks(t *testing.T) {
	store := NewStore()
	room, _ := store.CreateRoom("a", "", "")
	store.AddPlayer(room.Code, "b", "", "")
	store.AddPlayer(room.Code, "c", "", "")
	store.AddPlayer(room.Code, "d", "", "")
	room.Settings.ImpostorCount = 1
	assignRoles(room)

	generateTasks(room)

	perPlayer := room.Settings.CommonTasks + room.Settings.LongTasks + room.Settings.ShortTasks
	for i := range room.Players {
		p := &room.Players[i]
		if p.Role == roleImpostor {
			if len(p.TasksAssigned) != 0 {
				t.Errorf("impostor has %d tasks", len(p.TasksAssigned))
			}
			continue
		}
		if len(p.TasksAssigned) != perPlayer {
			t.Errorf("player %s has %d tasks, want %d", p.Name, len(p.TasksAssigned), perPlayer)
		}
	}
	if len(room.Tasks) != perPlayer*3 {
		t.Errorf("task pool = %d, want %d", len(room.Tasks), perPlayer*3)
	}
	for _, task := range room.Tasks {
		if task.AssignedTo == "" {
			t.Error("task with no owner")
		}
		if task.ID == "" {
			t.Error("task with no id")
		}
	}
}
