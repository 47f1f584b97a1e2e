package orchestrator

// Conn is the bidirectional transport for one session. A gorilla
// *websocket.Conn satisfies it; tests substitute an in-memory double.
type Conn interface {
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

// readPump drains inbound messages into a channel on a dedicated
// goroutine. The channel closes when the connection fails or is closed,
// which the session treats as a caller disconnect. done releases the
// pump once the session stops reading, so a chatty caller cannot park
// the goroutine on a full channel forever.
func readPump(conn Conn, done <-chan struct{}) <-chan Message {
	ch := make(chan Message, 8)
	go func() {
		defer close(ch)
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case ch <- msg:
			case <-done:
				return
			}
		}
	}()
	return ch
}
