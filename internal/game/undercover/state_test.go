package undercover

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"party-games/internal/config"
	"party-games/internal/shared"
	"party-games/internal/store"
	"party-games/internal/work"
)

type events struct {
	opened  int
	closed  []VoteRecord
	expired []string
}

func (e *events) VoteOpened(*Room)                   { e.opened++ }
func (e *events) VoteClosed(_ *Room, rec VoteRecord) { e.closed = append(e.closed, rec) }
func (e *events) GraceExpired(id string, _ LeaveResult) {
	e.expired = append(e.expired, id)
}

func newManager(t *testing.T) (*Manager, *work.ManualScheduler, *events) {
	t.Helper()
	sched := work.NewManualScheduler(time.Unix(1_700_000_000, 0))
	m := NewManager(store.NewRegistry[*Room](), rand.New(rand.NewSource(5)), config.Default().Undercover, sched, work.Inline{}, zaptest.NewLogger(t))
	ev := &events{}
	m.SetListener(ev)
	return m, sched, ev
}

// seated creates a room hosted by p0 with n ready players.
func seated(t *testing.T, m *Manager, n int, patch SettingsPatch) *Room {
	t.Helper()
	r, err := m.CreateRoom("p0", "P0", "", "", patch)
	require.NoError(t, err)
	for i := 1; i < n; i++ {
		id := fmt.Sprintf("p%d", i)
		_, err = m.JoinRoom(r.ID, id, id, "")
		require.NoError(t, err)
		_, err = m.SetReady(id, true)
		require.NoError(t, err)
	}
	return r
}

func started(t *testing.T, m *Manager, n int) *Room {
	t.Helper()
	r := seated(t, m, n, SettingsPatch{})
	_, err := m.Start("p0")
	require.NoError(t, err)
	return r
}

func spy(r *Room) *Player {
	p, _ := lo.Find(r.Players, func(p *Player) bool { return p.Role == RoleUndercover })
	return p
}

func civilians(r *Room) []*Player {
	return lo.Filter(r.Players, func(p *Player, _ int) bool { return p.Role == RoleCivilian && p.Alive })
}

func describeAll(t *testing.T, m *Manager, r *Room) {
	t.Helper()
	for _, p := range r.Alive() {
		_, err := m.Describe(p.ID, "abc")
		require.NoError(t, err)
	}
	require.Equal(t, PhaseVoting, r.Phase)
}

// voteAll has every alive player vote for target, except target who votes
// for fallback.
func voteAll(t *testing.T, m *Manager, r *Room, target, fallback string) VoteOutcome {
	t.Helper()
	var out VoteOutcome
	for _, p := range r.Alive() {
		to := target
		if p.ID == target {
			to = fallback
		}
		var err error
		out, err = m.Vote(p.ID, to)
		require.NoError(t, err)
	}
	return out
}

func TestSettingsApply(t *testing.T) {
	yes := true
	s := DefaultSettings().Apply(SettingsPatch{MaxPlayers: 20, DescribeTime: 5})
	assert.Equal(t, Settings{MaxPlayers: 8, DescribeTime: 15, VoteTime: 20}, s)

	s = s.Apply(SettingsPatch{VoteTime: 12, DoubleUndercover: &yes})
	assert.Equal(t, Settings{MaxPlayers: 8, DoubleUndercover: true, DescribeTime: 15, VoteTime: 12}, s)

	m, _, _ := newManager(t)
	seated(t, m, 4, SettingsPatch{})
	_, err := m.UpdateSettings("p0", SettingsPatch{MaxPlayers: 3})
	assert.ErrorIs(t, err, ErrTooManyPlayers)
	_, err = m.UpdateSettings("p1", SettingsPatch{VoteTime: 15})
	assert.ErrorIs(t, err, ErrNotHost)
}

func TestStartAssignsRoles(t *testing.T) {
	m, _, _ := newManager(t)
	r := seated(t, m, 2, SettingsPatch{})
	_, err := m.Start("p0")
	assert.ErrorIs(t, err, ErrNotEnough)

	_, err = m.JoinRoom(r.ID, "p2", "p2", "")
	require.NoError(t, err)
	_, err = m.Start("p0")
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = m.SetReady("p2", true)
	require.NoError(t, err)
	_, err = m.Start("p0")
	require.NoError(t, err)

	assert.Equal(t, PhaseDescribing, r.Phase)
	assert.Equal(t, 1, r.Round)
	assert.Equal(t, []string{"p0", "p1", "p2"}, r.Order)
	assert.Equal(t, "p0", r.Describer)
	assert.Equal(t, 1, lo.CountBy(r.Players, func(p *Player) bool { return p.Role == RoleUndercover }))
	for _, p := range r.Players {
		want := r.Pair.Civilian
		if p.Role == RoleUndercover {
			want = r.Pair.Undercover
		}
		assert.Equal(t, want, p.Word)
	}
}

func TestDoubleUndercoverNeedsSix(t *testing.T) {
	yes := true
	for n, want := range map[int]int{5: 1, 6: 2} {
		m, _, _ := newManager(t)
		r := seated(t, m, n, SettingsPatch{DoubleUndercover: &yes})
		_, err := m.Start("p0")
		require.NoError(t, err)
		assert.Equal(t, want, lo.CountBy(r.Players, func(p *Player) bool { return p.Role == RoleUndercover }), "%d players", n)
	}
}

func TestDescribeRules(t *testing.T) {
	m, _, _ := newManager(t)
	r := started(t, m, 3)

	p0 := r.Player("p0")
	word := []rune(p0.Word)
	_, err := m.Describe("p0", "it is "+string(word[len(word)-1]))
	assert.ErrorIs(t, err, ErrRevealsWord)
	assert.Equal(t, shared.KindInvalidMove, shared.KindOf(err))
	_, err = m.Describe("p0", "   ")
	assert.ErrorIs(t, err, ErrEmptyText)

	res, err := m.Describe("p0", "round and sweet")
	require.NoError(t, err)
	assert.False(t, res.VoteOpened)
	assert.Equal(t, "p1", r.Describer)
	_, err = m.Describe("p0", "again")
	assert.ErrorIs(t, err, ErrAlreadyDone)
	_, err = m.Vote("p0", "p1")
	assert.ErrorIs(t, err, ErrWrongPhase)

	_, err = m.Describe("p2", "xyz")
	require.NoError(t, err)
	res, err = m.Describe("p1", "xyz")
	require.NoError(t, err)
	assert.True(t, res.VoteOpened)
	assert.Equal(t, PhaseVoting, r.Phase)
	assert.Empty(t, r.Describer)
}

func TestDescribeDeadlineOpensVote(t *testing.T) {
	m, sched, ev := newManager(t)
	r := started(t, m, 4)
	_, err := m.Describe("p1", "xyz")
	require.NoError(t, err)

	sched.Advance(29 * time.Second)
	assert.Equal(t, PhaseDescribing, r.Phase)
	sched.Advance(time.Second)
	assert.Equal(t, PhaseVoting, r.Phase)
	assert.Equal(t, 1, ev.opened)
	assert.Equal(t, sched.Now().Add(20*time.Second), r.PhaseEndsAt)

	// nobody votes: the deadline resolves an empty ballot as a tie
	sched.Advance(20 * time.Second)
	require.Len(t, ev.closed, 1)
	assert.True(t, ev.closed[0].Tie)
	assert.Equal(t, PhaseResult, r.Phase)
	assert.Equal(t, 1, r.StaleRounds)
}

func TestVoteValidation(t *testing.T) {
	m, _, _ := newManager(t)
	r := started(t, m, 4)
	describeAll(t, m, r)

	_, err := m.Vote("p0", "p0")
	assert.ErrorIs(t, err, ErrSelfVote)
	assert.Equal(t, shared.KindForbidden, shared.KindOf(err))
	_, err = m.Vote("p0", "ghost")
	assert.ErrorIs(t, err, ErrBadTarget)

	out, err := m.Vote("p0", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Voted)
	assert.Equal(t, 4, out.Total)
	assert.Nil(t, out.Record)

	// changing a ballot does not count twice
	out, err = m.Vote("p0", "p2")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Voted)
}

func TestCiviliansWin(t *testing.T) {
	m, _, _ := newManager(t)
	r := started(t, m, 4)
	describeAll(t, m, r)
	s := spy(r)
	out := voteAll(t, m, r, s.ID, civilians(r)[0].ID)

	require.NotNil(t, out.Record)
	assert.Equal(t, s.ID, out.Record.EliminatedID)
	assert.Equal(t, RoleUndercover, out.Record.EliminatedRole)
	assert.Equal(t, 3, out.Record.Tally[s.ID])
	assert.Equal(t, PhaseEnded, r.Phase)
	assert.Equal(t, WinnerCivilian, r.Winner)
	assert.True(t, r.PhaseEndsAt.IsZero())
}

func TestUndercoverWinsAtThree(t *testing.T) {
	m, _, _ := newManager(t)
	r := started(t, m, 4)
	describeAll(t, m, r)
	cs := civilians(r)
	out := voteAll(t, m, r, cs[0].ID, cs[1].ID)

	require.NotNil(t, out.Record)
	assert.Equal(t, cs[0].ID, out.Record.EliminatedID)
	assert.Equal(t, PhaseEnded, r.Phase)
	assert.Equal(t, WinnerUndercover, r.Winner)
}

func TestTwoStaleRoundsDraw(t *testing.T) {
	m, _, _ := newManager(t)
	r := started(t, m, 4)

	split := func() VoteOutcome {
		describeAll(t, m, r)
		var out VoteOutcome
		for voter, target := range map[string]string{"p0": "p1", "p1": "p0", "p2": "p1", "p3": "p0"} {
			var err error
			out, err = m.Vote(voter, target)
			require.NoError(t, err)
		}
		return out
	}

	out := split()
	require.NotNil(t, out.Record)
	assert.True(t, out.Record.Tie)
	assert.Empty(t, out.Record.EliminatedID)
	assert.Len(t, r.Alive(), 4)
	assert.Equal(t, PhaseResult, r.Phase)

	_, err := m.NextRound("p1")
	assert.ErrorIs(t, err, ErrNotHost)
	_, err = m.NextRound("p0")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Round)
	assert.Equal(t, PhaseDescribing, r.Phase)
	assert.False(t, r.Player("p0").Described)

	out = split()
	assert.True(t, out.Record.Tie)
	assert.Equal(t, PhaseEnded, r.Phase)
	assert.Equal(t, WinnerDraw, r.Winner)
	require.Len(t, r.History, 2)
	assert.Equal(t, 2, r.History[1].Round)
}

func TestEliminationResetsStaleCounter(t *testing.T) {
	m, _, _ := newManager(t)
	yes := true
	r := seated(t, m, 6, SettingsPatch{DoubleUndercover: &yes})
	_, err := m.Start("p0")
	require.NoError(t, err)
	r.StaleRounds = 1

	describeAll(t, m, r)
	cs := civilians(r)
	out := voteAll(t, m, r, cs[0].ID, cs[1].ID)
	assert.Equal(t, cs[0].ID, out.Record.EliminatedID)
	assert.Zero(t, r.StaleRounds)
	assert.Equal(t, PhaseResult, r.Phase)

	_, err = m.NextRound("p0")
	require.NoError(t, err)
	assert.NotContains(t, r.Order, cs[0].ID)
	_, err = m.Describe(cs[0].ID, "xyz")
	assert.ErrorIs(t, err, ErrEliminated)
}

func TestRestartCancelsTimers(t *testing.T) {
	m, sched, ev := newManager(t)
	r := started(t, m, 3)

	_, err := m.Restart("p1")
	assert.ErrorIs(t, err, ErrNotHost)
	_, err = m.Restart("p0")
	require.NoError(t, err)
	assert.Equal(t, PhaseWaiting, r.Phase)
	assert.Zero(t, r.timers.Len())

	sched.Advance(time.Minute)
	assert.Zero(t, ev.opened)
	assert.Equal(t, PhaseWaiting, r.Phase)
	for _, p := range r.Players {
		assert.Empty(t, p.Role)
		assert.Equal(t, p.ID == "p0", p.Ready)
	}
}

func TestLeaveMidGameIsDraw(t *testing.T) {
	m, sched, _ := newManager(t)
	r := started(t, m, 4)

	res, err := m.LeaveRoom("p0")
	require.NoError(t, err)
	assert.True(t, res.EndedGame)
	assert.False(t, res.Disbanded)
	assert.Equal(t, PhaseEnded, r.Phase)
	assert.Equal(t, WinnerDraw, r.Winner)
	assert.Len(t, r.Players, 4, "the seat stays until reset")
	assert.Equal(t, "p1", r.HostID)

	sched.Advance(time.Minute)
	assert.Equal(t, PhaseEnded, r.Phase)

	_, err = m.Restart("p1")
	require.NoError(t, err)
	assert.Len(t, r.Players, 3)
	assert.Nil(t, r.Player("p0"))
}

func TestDisconnectDuringPlayLeaves(t *testing.T) {
	m, _, _ := newManager(t)
	r := started(t, m, 3)
	res, left := m.Disconnect("p2")
	require.True(t, left)
	assert.True(t, res.EndedGame)
	assert.Equal(t, WinnerDraw, r.Winner)
	_, ok := m.RoomOf("p2")
	assert.False(t, ok)
}

func TestDisconnectGrace(t *testing.T) {
	m, sched, ev := newManager(t)
	r := seated(t, m, 3, SettingsPatch{})

	_, left := m.Disconnect("p1")
	assert.False(t, left)
	assert.False(t, r.Player("p1").Online)

	sched.Advance(4 * time.Second)
	_, err := m.Rejoin(r.ID, "p1")
	require.NoError(t, err)
	sched.Advance(10 * time.Second)
	require.NotNil(t, r.Player("p1"))
	assert.True(t, r.Player("p1").Online)
	assert.Empty(t, ev.expired)

	m.Disconnect("p1")
	sched.Advance(5 * time.Second)
	assert.Nil(t, r.Player("p1"))
	assert.Equal(t, []string{"p1"}, ev.expired)

	// a join on the same seat also cancels the removal
	m.Disconnect("p2")
	res, err := m.JoinRoom(r.ID, "p2", "p2", "")
	require.NoError(t, err)
	assert.True(t, res.Reconnect)
	sched.Advance(time.Minute)
	assert.NotNil(t, r.Player("p2"))
}

func TestReconnectRefusesSecondRoom(t *testing.T) {
	m, _, _ := newManager(t)
	r := seated(t, m, 3, SettingsPatch{})
	m.Disconnect("p2")
	m.rooms.Unbind("p2")
	other, err := m.CreateRoom("p2", "p2", "", "", SettingsPatch{})
	require.NoError(t, err)

	_, err = m.Rejoin(r.ID, "p2")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
	_, err = m.JoinRoom(r.ID, "p2", "p2", "")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
	assert.False(t, r.Player("p2").Online)
	got, ok := m.RoomOf("p2")
	require.True(t, ok)
	assert.Equal(t, other.ID, got.ID)
}

func TestLastPlayerDisbands(t *testing.T) {
	m, sched, ev := newManager(t)
	r := seated(t, m, 1, SettingsPatch{})
	m.Disconnect("p0")
	sched.Advance(5 * time.Second)
	_, ok := m.Get(r.ID)
	assert.False(t, ok)
	assert.Equal(t, []string{"p0"}, ev.expired)
}

func TestViewRedaction(t *testing.T) {
	m, _, _ := newManager(t)
	r := started(t, m, 4)
	_, err := m.Describe("p0", "xyz")
	require.NoError(t, err)

	v := ViewFor(r, "p0")
	for _, p := range v.Players {
		assert.Empty(t, p.Role)
		assert.Empty(t, p.Word)
		assert.Empty(t, p.Description, "descriptions stay hidden while describing")
	}
	priv := PrivateFor(r, "p0")
	require.NotNil(t, priv)
	assert.Equal(t, r.Player("p0").Word, priv.Word)

	for _, p := range r.Alive()[1:] {
		_, err = m.Describe(p.ID, "xyz")
		require.NoError(t, err)
	}
	cs := civilians(r)
	voteAll(t, m, r, cs[0].ID, cs[1].ID)

	v = ViewFor(r, "p0")
	for _, p := range v.Players {
		assert.Equal(t, "xyz", p.Description)
		assert.NotEmpty(t, p.Role, "game over reveals everyone")
	}
	require.Len(t, v.History, 1)
}

func TestViewKeepsWordsOfTheOutUntilGameOver(t *testing.T) {
	m, _, _ := newManager(t)
	r := started(t, m, 6)
	describeAll(t, m, r)
	cs := civilians(r)
	out := cs[0].ID
	voteAll(t, m, r, out, cs[1].ID)
	require.Equal(t, PhaseResult, r.Phase)

	for _, viewer := range []string{spy(r).ID, cs[1].ID, out} {
		pv, ok := lo.Find(ViewFor(r, viewer).Players, func(p PlayerView) bool { return p.ID == out })
		require.True(t, ok)
		assert.Equal(t, RoleCivilian, pv.Role)
		assert.Empty(t, pv.Word)
	}
	priv := PrivateFor(r, out)
	require.NotNil(t, priv)
	assert.NotEmpty(t, priv.Word)
}
