package server

import (
	"sort"

	"github.com/gorilla/websocket"
)

func (s *Server) handleDailyVote(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseDailyVoting {
			return ErrInvalidPhase
		}
		if !actor.IsAlive {
			return ErrNotAuthorized
		}
		// A ballot names exactly 3 distinct living players, fewer only when
		// the roster has shrunk below that.
		required := 3
		if alive := len(room.alivePlayers()); alive < required {
			required = alive
		}
		targets := dedupe(msg.Targets)
		if len(targets) != required || len(targets) != len(msg.Targets) {
			return ErrPreconditionFailed
		}
		for _, id := range targets {
			t := room.findPlayer(id)
			if t == nil || !t.IsAlive {
				return ErrPreconditionFailed
			}
		}

		// Re-submitting replaces the ballot but keeps the original order.
		replaced := false
		for i := range room.DailyVotes {
			if room.DailyVotes[i].VoterID == actor.ID {
				room.DailyVotes[i].Targets = targets
				replaced = true
				break
			}
		}
		if !replaced {
			room.VoteOrder++
			room.DailyVotes = append(room.DailyVotes, DailyVote{
				VoterID: actor.ID,
				Targets: targets,
				Day:     room.CurrentDay,
				Order:   room.VoteOrder,
			})
		}

		actorID := actor.ID
		*after = append(*after, func() {
			s.broadcast(room, "vote_registered", map[string]string{"playerId": actorID})
		})
		if dailyQuorum(room) {
			s.resolveDailyVoting(room, after)
		}
		return nil
	})
}

func (s *Server) handleEliminationVote(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseEliminationVoting {
			return ErrInvalidPhase
		}
		if !actor.IsAlive {
			return ErrNotAuthorized
		}
		target := msg.TargetID
		if target == "" {
			// No target on the ballot means an explicit skip.
			target = voteSkip
		}
		if target != voteSkip {
			t := room.findPlayer(target)
			if t == nil || !t.IsAlive {
				return ErrPreconditionFailed
			}
		}

		replaced := false
		for i := range room.EliminationVotes {
			if room.EliminationVotes[i].VoterID == actor.ID {
				room.EliminationVotes[i].TargetID = target
				replaced = true
				break
			}
		}
		if !replaced {
			room.VoteOrder++
			room.EliminationVotes = append(room.EliminationVotes, EliminationVote{
				VoterID:  actor.ID,
				TargetID: target,
				Order:    room.VoteOrder,
			})
		}

		actorID := actor.ID
		*after = append(*after, func() {
			s.broadcast(room, "vote_registered", map[string]string{"playerId": actorID})
		})
		if eliminationQuorum(room) {
			s.resolveElimination(room, after)
		}
		return nil
	})
}

// dailyQuorum reports whether every connected living player has voted.
func dailyQuorum(room *Room) bool {
	voted := map[string]bool{}
	for _, v := range room.DailyVotes {
		voted[v.VoterID] = true
	}
	for i := range room.Players {
		p := &room.Players[i]
		if p.IsAlive && p.Connected && !voted[p.ID] {
			return false
		}
	}
	return true
}

func eliminationQuorum(room *Room) bool {
	voted := map[string]bool{}
	for _, v := range room.EliminationVotes {
		voted[v.VoterID] = true
	}
	for i := range room.Players {
		p := &room.Players[i]
		if p.IsAlive && p.Connected && !voted[p.ID] {
			return false
		}
	}
	return true
}

// tallyDailyVotes picks up to limit players by mention count; ties break by
// earliest mention across the ballots.
func tallyDailyVotes(room *Room, limit int) []string {
	counts := map[string]int{}
	firstMention := map[string]int{}
	mention := 0
	for _, vote := range room.DailyVotes {
		for _, target := range vote.Targets {
			counts[target]++
			if _, seen := firstMention[target]; !seen {
				firstMention[target] = mention
			}
			mention++
		}
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return firstMention[a] < firstMention[b]
	})

	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// tallyEliminationVotes resolves a meeting ballot. A player is ejected only
// with a strict majority of votes cast and no tie at the top; anything else
// is a skip.
func tallyEliminationVotes(room *Room) (ejectedID string, counts []voteCount) {
	tally := map[string]int{}
	for _, vote := range room.EliminationVotes {
		tally[vote.TargetID]++
	}

	ids := make([]string, 0, len(tally))
	for id := range tally {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if tally[ids[i]] != tally[ids[j]] {
			return tally[ids[i]] > tally[ids[j]]
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		counts = append(counts, voteCount{TargetID: id, Votes: tally[id]})
	}

	ballots := len(room.EliminationVotes)
	if ballots == 0 || len(ids) == 0 {
		return "", counts
	}
	top := ids[0]
	topCount := tally[top]
	if len(ids) > 1 && tally[ids[1]] == topCount {
		return "", counts
	}
	if top == voteSkip {
		return "", counts
	}
	if topCount*2 <= ballots {
		return "", counts
	}
	return top, counts
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
