package net

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"worldify/internal/voxel"
	"worldify/internal/world"
)

// Handler receives decoded server messages. The engine satisfies it; every
// method is invoked from the main thread via Dispatch.
type Handler interface {
	OnChunkData(*world.ChunkData)
	OnTileData(*world.TileData)
	OnSurfaceColumnData(*world.SurfaceColumnData)
	ApplyBuildCommit(world.BuildCommit)
}

// Client is the websocket transport: a read pump decoding frames into an
// inbox the main thread drains, and a write pump for outgoing requests. It
// implements world.RequestSink.
type Client struct {
	conn    *websocket.Conn
	url     string
	session uuid.UUID

	inbox  chan any
	outbox chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects and performs the hello handshake.
func Dial(url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		url:     url,
		session: uuid.New(),
		inbox:   make(chan any, 256),
		outbox:  make(chan []byte, 256),
		done:    make(chan struct{}),
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, EncodeHello(c.session)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending hello: %w", err)
	}

	go c.readPump()
	go c.writePump()

	slog.Info("connected", "url", url, "session", c.session)
	return c, nil
}

// Session returns the client session id.
func (c *Client) Session() uuid.UUID {
	return c.session
}

// URL returns the endpoint this client dialed.
func (c *Client) URL() string {
	return c.url
}

// Close tears the connection down.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Done is closed when the connection drops.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readPump() {
	defer c.Close()
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			slog.Warn("read pump stopped", "err", err)
			return
		}
		if kind != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		msg, err := decodeFrame(data)
		if err != nil {
			slog.Warn("dropping malformed frame", "type", data[0], "err", err)
			continue
		}

		select {
		case c.inbox <- msg:
		case <-c.done:
			return
		}
	}
}

func decodeFrame(data []byte) (any, error) {
	payload := data[1:]
	switch data[0] {
	case MsgChunkData:
		return DecodeChunkData(payload)
	case MsgTileData:
		return DecodeTileData(payload)
	case MsgSurfaceColumn:
		return DecodeSurfaceColumn(payload)
	case MsgBuildCommit:
		return DecodeBuildCommit(payload)
	default:
		return nil, fmt.Errorf("unknown message type 0x%02x", data[0])
	}
}

func (c *Client) writePump() {
	for {
		select {
		case frame := <-c.outbox:
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				slog.Warn("write pump stopped", "err", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Dispatch drains every decoded message into the handler without blocking.
// Call once per frame from the main thread; the engine owns all world state
// and must not be touched from the pumps.
func (c *Client) Dispatch(h Handler) {
	for {
		select {
		case msg := <-c.inbox:
			switch m := msg.(type) {
			case *world.ChunkData:
				h.OnChunkData(m)
			case *world.TileData:
				h.OnTileData(m)
			case *world.SurfaceColumnData:
				h.OnSurfaceColumnData(m)
			case *world.BuildCommit:
				h.ApplyBuildCommit(*m)
			}
		default:
			return
		}
	}
}

// SendBinary queues a raw frame; a full outbox drops the frame. A dropped
// request stays marked pending in the store, so the scheduler does not send
// it again.
func (c *Client) SendBinary(frame []byte) {
	select {
	case c.outbox <- frame:
	default:
		slog.Warn("outbox full, dropping frame")
	}
}

// SendChunkRequest implements world.RequestSink.
func (c *Client) SendChunkRequest(coord voxel.ChunkCoord, forceRegen bool) {
	c.SendBinary(EncodeChunkRequest(coord, forceRegen))
}

// SendTileRequest implements world.RequestSink.
func (c *Client) SendTileRequest(col voxel.ColumnCoord) {
	c.SendBinary(EncodeTileRequest(col))
}

// SendSurfaceColumnRequest implements world.RequestSink.
func (c *Client) SendSurfaceColumnRequest(col voxel.ColumnCoord) {
	c.SendBinary(EncodeSurfaceColumnRequest(col))
}
