package room

import (
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Devansh-Ruia/Pulse/internal/domain"
	"github.com/Devansh-Ruia/Pulse/internal/logging"
	"github.com/Devansh-Ruia/Pulse/internal/metrics"
)

const (
	// DefaultSnapshotInterval is the period of the sentiment snapshot scheduler.
	DefaultSnapshotInterval = 5 * time.Second

	cmdBufferSize  = 256
	sendBufferSize = 16
	writeWait      = 5 * time.Second
)

// --- Command types ---

type sessionCmd interface{ sessionCmd() }

type joinCmd struct {
	conn          *websocket.Conn
	participantID string
	role          string
	errCh         chan error
}

func (joinCmd) sessionCmd() {}

type sentimentCmd struct {
	participantID string
	value         float64
}

func (sentimentCmd) sessionCmd() {}

type tipCmd struct {
	conn          *websocket.Conn
	participantID string
	amount        float64
	transactionID string
}

func (tipCmd) sessionCmd() {}

type leaveCmd struct {
	conn          *websocket.Conn
	participantID string
}

func (leaveCmd) sessionCmd() {}

type rejectCmd struct {
	conn    *websocket.Conn
	message string
}

func (rejectCmd) sessionCmd() {}

type summaryCmd struct {
	replyCh chan domain.RoomSummary
}

func (summaryCmd) sessionCmd() {}

type snapshotsCmd struct {
	replyCh chan []domain.Snapshot
}

func (snapshotsCmd) sessionCmd() {}

type tipsCmd struct {
	replyCh chan []domain.Tip
}

func (tipsCmd) sessionCmd() {}

type dormancyCmd struct {
	replyCh chan time.Time
}

func (dormancyCmd) sessionCmd() {}

type stopCmd struct{}

func (stopCmd) sessionCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				// Closing connections are expected, not exceptional.
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	cw.conn.Close()
}

// --- Session ---

// Session owns the full mutable state of one room. All mutation is serialized
// through a single actor goroutine: events arriving from many connections and
// the snapshot scheduler tick are cases of the same select loop, so no two
// ever interleave.
//
// The scheduler starts at room creation and cancels itself permanently on the
// first tick that finds no participants. The room stays addressable for reads
// and still accepts events, but emits no further snapshots.
type Session struct {
	info       domain.RoomInfo
	clock      clockwork.Clock
	interval   time.Duration
	maxClients int
	log        *slog.Logger

	cmdCh chan sessionCmd
	done  chan struct{}

	// Actor-owned state. Touched only from run().
	participants map[string]struct{}
	sentiment    map[string]float64
	snapshots    []domain.Snapshot
	tips         []domain.Tip
	totalTips    float64
	clients      map[*websocket.Conn]*clientWriter
	dormantSince time.Time
}

func newSession(info domain.RoomInfo, clock clockwork.Clock, interval time.Duration, maxClients int) *Session {
	s := &Session{
		info:         info,
		clock:        clock,
		interval:     interval,
		maxClients:   maxClients,
		log:          logging.WithRoom(info.ID),
		cmdCh:        make(chan sessionCmd, cmdBufferSize),
		done:         make(chan struct{}),
		participants: make(map[string]struct{}),
		sentiment:    make(map[string]float64),
		clients:      make(map[*websocket.Conn]*clientWriter),
		dormantSince: clock.Now(),
	}
	go s.run()
	return s
}

// Info returns the room's immutable identity.
func (s *Session) Info() domain.RoomInfo {
	return s.info
}

func (s *Session) run() {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.done)

	tickCh := ticker.Chan()
	for {
		select {
		case <-tickCh:
			if s.handleTick() {
				// Permanent cancel: the room goes dormant.
				ticker.Stop()
				tickCh = nil
			}
		case cmd := <-s.cmdCh:
			switch c := cmd.(type) {
			case joinCmd:
				s.handleJoin(c)
			case sentimentCmd:
				s.handleSentiment(c)
			case tipCmd:
				s.handleTip(c)
			case leaveCmd:
				s.handleLeave(c)
			case rejectCmd:
				s.sendTo(c.conn, domain.ErrorMessage{Type: domain.TypeError, Message: c.message})
			case summaryCmd:
				c.replyCh <- s.summary()
			case snapshotsCmd:
				c.replyCh <- append([]domain.Snapshot(nil), s.snapshots...)
			case tipsCmd:
				c.replyCh <- append([]domain.Tip(nil), s.tips...)
			case dormancyCmd:
				c.replyCh <- s.dormantSince
			case stopCmd:
				s.handleStop()
				return
			}
		}
	}
}

// --- Event handlers (actor goroutine only) ---

func (s *Session) handleJoin(c joinCmd) {
	if _, active := s.participants[c.participantID]; active {
		c.errCh <- domain.ErrAlreadyJoined
		return
	}
	if len(s.clients) >= s.maxClients {
		c.errCh <- domain.ErrRoomFull
		return
	}

	s.participants[c.participantID] = struct{}{}
	s.clients[c.conn] = newClientWriter(c.conn)
	s.dormantSince = time.Time{}

	metrics.ParticipantsActive.Inc()
	metrics.ConnectedClients.Inc()

	s.sendTo(c.conn, domain.RoomInfoMessage{
		Type:              domain.TypeRoomInfo,
		Title:             s.info.Title,
		PayoutDestination: s.info.PayoutDestination,
	})
	s.broadcast(domain.UserCountMessage{Type: domain.TypeUserCount, Count: len(s.participants)})

	s.log.Debug("Participant joined",
		"participant_id", c.participantID,
		"role", c.role,
		"participants", len(s.participants),
	)
	c.errCh <- nil
}

func (s *Session) handleSentiment(c sentimentCmd) {
	// Last write wins. A reading racing a leave is dropped.
	if _, active := s.participants[c.participantID]; !active {
		return
	}
	s.sentiment[c.participantID] = c.value
}

func (s *Session) handleTip(c tipCmd) {
	if _, active := s.participants[c.participantID]; !active {
		s.sendTo(c.conn, domain.ErrorMessage{Type: domain.TypeError, Message: "not joined"})
		return
	}

	tip := domain.Tip{
		FromParticipant: c.participantID,
		Amount:          c.amount,
		TransactionID:   c.transactionID,
		Timestamp:       s.clock.Now(),
	}
	s.tips = append(s.tips, tip)
	s.totalTips += c.amount

	metrics.TipsTotal.Inc()
	metrics.TipAmountTotal.Add(c.amount)

	s.broadcast(domain.TipEventMessage{
		Type:      domain.TypeTipEvent,
		Amount:    tip.Amount,
		TotalTips: s.totalTips,
		Timestamp: tip.Timestamp.UnixMilli(),
	})

	s.log.Info("Tip recorded",
		"participant_id", c.participantID,
		"amount", c.amount,
		"total_tips", s.totalTips,
	)
}

func (s *Session) handleLeave(c leaveCmd) {
	if cw, attached := s.clients[c.conn]; attached {
		cw.stop()
		delete(s.clients, c.conn)
		metrics.ConnectedClients.Dec()
	}

	// Explicit leave followed by the connection closing arrives twice.
	if _, active := s.participants[c.participantID]; !active {
		return
	}
	delete(s.participants, c.participantID)
	delete(s.sentiment, c.participantID)
	metrics.ParticipantsActive.Dec()

	if len(s.participants) == 0 && len(s.clients) == 0 {
		s.dormantSince = s.clock.Now()
	}

	s.broadcast(domain.UserCountMessage{Type: domain.TypeUserCount, Count: len(s.participants)})

	s.log.Debug("Participant left",
		"participant_id", c.participantID,
		"participants", len(s.participants),
	)
}

// handleTick runs the snapshot scheduler. Returns true when the scheduler
// should cancel itself.
func (s *Session) handleTick() bool {
	if len(s.participants) == 0 {
		s.log.Debug("Room empty, stopping snapshot scheduler")
		return true
	}

	// No readings yet: skip the tick rather than broadcast a misleading zero.
	if len(s.sentiment) == 0 {
		return false
	}

	var sum float64
	for _, v := range s.sentiment {
		sum += v
	}
	snap := domain.Snapshot{
		Timestamp:   s.clock.Now(),
		Average:     sum / float64(len(s.sentiment)),
		SampleCount: len(s.sentiment),
	}
	s.snapshots = append(s.snapshots, snap)
	metrics.SnapshotsEmitted.Inc()

	s.broadcast(domain.SnapshotMessage{
		Type:        domain.TypeSnapshot,
		Timestamp:   snap.Timestamp.UnixMilli(),
		Average:     snap.Average,
		SampleCount: snap.SampleCount,
	})
	return false
}

func (s *Session) handleStop() {
	for conn, cw := range s.clients {
		cw.stop()
		delete(s.clients, conn)
		metrics.ConnectedClients.Dec()
	}
	metrics.ParticipantsActive.Sub(float64(len(s.participants)))
}

func (s *Session) summary() domain.RoomSummary {
	return domain.RoomSummary{
		Title:             s.info.Title,
		PayoutDestination: s.info.PayoutDestination,
		ParticipantCount:  len(s.participants),
		TotalTips:         s.totalTips,
	}
}

// --- Fan-out (actor goroutine only) ---

// broadcast serializes msg once and hands it to every attached connection's
// writer. Writers that cannot accept the message are evicted; a failing
// recipient never affects delivery to the rest.
func (s *Session) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("Failed to marshal broadcast message", "error", err)
		return
	}

	var slow []*websocket.Conn
	for conn, cw := range s.clients {
		select {
		case cw.sendCh <- data:
			metrics.BroadcastsSent.Inc()
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		s.log.Warn("Disconnecting slow client")
		metrics.SlowClientsEvicted.Inc()
		if cw, ok := s.clients[conn]; ok {
			cw.stop()
			delete(s.clients, conn)
			metrics.ConnectedClients.Dec()
		}
	}
}

func (s *Session) sendTo(conn *websocket.Conn, msg any) {
	cw, ok := s.clients[conn]
	if !ok {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("Failed to marshal message", "error", err)
		return
	}
	select {
	case cw.sendCh <- data:
	default:
	}
}

// --- Public API ---

// Join attaches a connection as participantID. It fails with ErrAlreadyJoined
// when the identifier is already active in the room.
func (s *Session) Join(conn *websocket.Conn, participantID, role string) error {
	errCh := make(chan error, 1)
	select {
	case s.cmdCh <- joinCmd{conn: conn, participantID: participantID, role: role, errCh: errCh}:
	case <-s.done:
		return domain.ErrRoomClosed
	}
	select {
	case err := <-errCh:
		return err
	case <-s.done:
		return domain.ErrRoomClosed
	}
}

// Sentiment records participantID's latest reading. Overwrite semantics: only
// the most recent value per participant feeds the next snapshot.
func (s *Session) Sentiment(participantID string, value float64) {
	select {
	case s.cmdCh <- sentimentCmd{participantID: participantID, value: value}:
	case <-s.done:
	}
}

// Tip appends an externally-authorized tip to the ledger and broadcasts it
// immediately.
func (s *Session) Tip(conn *websocket.Conn, participantID string, amount float64, transactionID string) {
	select {
	case s.cmdCh <- tipCmd{conn: conn, participantID: participantID, amount: amount, transactionID: transactionID}:
	case <-s.done:
	}
}

// Leave removes participantID and detaches its connection.
func (s *Session) Leave(conn *websocket.Conn, participantID string) {
	select {
	case s.cmdCh <- leaveCmd{conn: conn, participantID: participantID}:
	case <-s.done:
	}
}

// Disconnect handles an implicit leave when the connection closes before a
// leave event is observed. Safe to call after an explicit Leave.
func (s *Session) Disconnect(conn *websocket.Conn, participantID string) {
	s.Leave(conn, participantID)
}

// Reject sends an error frame to one attached connection.
func (s *Session) Reject(conn *websocket.Conn, message string) {
	select {
	case s.cmdCh <- rejectCmd{conn: conn, message: message}:
	case <-s.done:
	}
}

// Summary returns the read-only projection served to status queries.
func (s *Session) Summary() domain.RoomSummary {
	replyCh := make(chan domain.RoomSummary, 1)
	select {
	case s.cmdCh <- summaryCmd{replyCh: replyCh}:
	case <-s.done:
		return domain.RoomSummary{Title: s.info.Title, PayoutDestination: s.info.PayoutDestination}
	}
	select {
	case v := <-replyCh:
		return v
	case <-s.done:
		return domain.RoomSummary{Title: s.info.Title, PayoutDestination: s.info.PayoutDestination}
	}
}

// Snapshots returns a copy of the snapshot log.
func (s *Session) Snapshots() []domain.Snapshot {
	replyCh := make(chan []domain.Snapshot, 1)
	select {
	case s.cmdCh <- snapshotsCmd{replyCh: replyCh}:
	case <-s.done:
		return nil
	}
	select {
	case v := <-replyCh:
		return v
	case <-s.done:
		return nil
	}
}

// Tips returns a copy of the tip ledger in submission order.
func (s *Session) Tips() []domain.Tip {
	replyCh := make(chan []domain.Tip, 1)
	select {
	case s.cmdCh <- tipsCmd{replyCh: replyCh}:
	case <-s.done:
		return nil
	}
	select {
	case v := <-replyCh:
		return v
	case <-s.done:
		return nil
	}
}

// DormantSince reports when the room last emptied. Zero while occupied.
func (s *Session) DormantSince() time.Time {
	replyCh := make(chan time.Time, 1)
	select {
	case s.cmdCh <- dormancyCmd{replyCh: replyCh}:
	case <-s.done:
		return s.info.CreatedAt
	}
	select {
	case v := <-replyCh:
		return v
	case <-s.done:
		return s.info.CreatedAt
	}
}

// Stop closes all attached connections and terminates the actor goroutine.
func (s *Session) Stop() {
	select {
	case s.cmdCh <- stopCmd{}:
		<-s.done
	case <-s.done:
	}
}
