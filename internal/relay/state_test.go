package relay

import "testing"

type chanSink struct {
	ch chan []byte
}

func newChanSink() *chanSink { return &chanSink{ch: make(chan []byte, 8)} }

func (s *chanSink) Send(frame []byte) error {
	s.ch <- frame
	return nil
}

func TestCreateAndJoinRoom(t *testing.T) {
	s := NewState(10)
	host := newChanSink()
	if err := s.CreateRoom("ABCD-1234", host); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	client := newChanSink()
	id, err := s.JoinRoom("ABCD-1234", client)
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if id != 1 {
		t.Errorf("expected first client id 1, got %d", id)
	}
	if !s.RoomExists("ABCD-1234") {
		t.Error("expected room to exist")
	}
}

func TestJoinNonexistentRoomFails(t *testing.T) {
	s := NewState(10)
	if _, err := s.JoinRoom("NOPE-0000", newChanSink()); err == nil {
		t.Error("expected join of unknown room to fail")
	}
}

func TestMaxRoomsEnforced(t *testing.T) {
	s := NewState(1)
	if err := s.CreateRoom("AAAA-0001", newChanSink()); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := s.CreateRoom("BBBB-0002", newChanSink()); err == nil {
		t.Error("expected second room to be rejected at capacity")
	}
}

func TestLeaveRoomCleanup(t *testing.T) {
	s := NewState(10)
	if err := s.CreateRoom("ABCD-1234", newChanSink()); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	id, err := s.JoinRoom("ABCD-1234", newChanSink())
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	emptyOfClients := s.LeaveRoom("ABCD-1234", id)
	if !emptyOfClients {
		t.Error("expected room to report empty of clients after its only client leaves")
	}
	if !s.RoomExists("ABCD-1234") {
		t.Error("room itself should still exist; only the host leaving destroys it")
	}
}

func TestForwardToHost(t *testing.T) {
	s := NewState(10)
	host := newChanSink()
	if err := s.CreateRoom("ABCD-1234", host); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := s.JoinRoom("ABCD-1234", newChanSink()); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	s.RelayToHost("ABCD-1234", []byte{0x01, 0x02, 0x03})
	select {
	case got := <-host.ch:
		if string(got) != string([]byte{0x01, 0x02, 0x03}) {
			t.Errorf("unexpected forwarded payload: %v", got)
		}
	default:
		t.Fatal("expected host to receive forwarded frame")
	}
}

func TestForwardToClients(t *testing.T) {
	s := NewState(10)
	if err := s.CreateRoom("ABCD-1234", newChanSink()); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	c1, c2 := newChanSink(), newChanSink()
	if _, err := s.JoinRoom("ABCD-1234", c1); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if _, err := s.JoinRoom("ABCD-1234", c2); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	s.RelayToClients("ABCD-1234", []byte{0x10, 0x20})
	for _, sink := range []*chanSink{c1, c2} {
		select {
		case got := <-sink.ch:
			if string(got) != string([]byte{0x10, 0x20}) {
				t.Errorf("unexpected forwarded payload: %v", got)
			}
		default:
			t.Fatal("expected every client to receive forwarded frame")
		}
	}
}

func TestHostDisconnectDestroysRoom(t *testing.T) {
	s := NewState(10)
	if err := s.CreateRoom("ABCD-1234", newChanSink()); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if !s.RoomExists("ABCD-1234") {
		t.Fatal("expected room to exist before destroy")
	}
	s.DestroyRoom("ABCD-1234")
	if s.RoomExists("ABCD-1234") {
		t.Error("expected room to be gone after DestroyRoom")
	}
}
