package main

import (
	"flag"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/closer"

	"worldify/internal/config"
	"worldify/internal/engine"
	"worldify/internal/graphics"
	"worldify/internal/net"
	"worldify/internal/profiling"
)

func init() {
	runtime.LockOSThread()
}

const (
	winW = 1280
	winH = 720
)

func main() {
	configPath := flag.String("config", "worldify.yaml", "path to the client config")
	serverURL := flag.String("server", "", "override the websocket server url")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	cfg.Apply()
	setupLogging(cfg.LogLevel)

	if err := glfw.Init(); err != nil {
		slog.Error("glfw init failed", "err", err)
		os.Exit(1)
	}
	closer.Bind(glfw.Terminate)

	window, err := setupWindow()
	if err != nil {
		slog.Error("window setup failed", "err", err)
		closer.Close()
		os.Exit(1)
	}

	client, err := net.Dial(cfg.ServerURL)
	if err != nil {
		slog.Error("connect failed", "err", err)
		closer.Close()
		os.Exit(1)
	}
	closer.Bind(client.Close)

	eng := engine.New(client)
	closer.Bind(eng.Dispose)

	renderer, err := graphics.NewTerrainRenderer()
	if err != nil {
		slog.Error("renderer setup failed", "err", err)
		closer.Close()
		os.Exit(1)
	}

	camera := graphics.NewCamera(winW, winH)
	camera.Position = mgl32.Vec3{0, 48, 0}

	runLoop(window, client, eng, renderer, camera)
	closer.Close()
}

func setupLogging(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func setupWindow() (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(winW, winH, "worldify", nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return nil, err
	}

	glfw.SwapInterval(0)
	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)

	return window, nil
}

func runLoop(window *glfw.Window, client *net.Client, eng *engine.Engine, renderer *graphics.TerrainRenderer, camera *graphics.Camera) {
	last := time.Now()

	for !window.ShouldClose() {
		profiling.ResetFrame()
		frameStart := time.Now()
		dt := frameStart.Sub(last).Seconds()
		last = frameStart

		glfw.PollEvents()
		moveCamera(window, camera, float32(dt))

		select {
		case <-client.Done():
			slog.Warn("connection lost, reconnecting")
			reconnected, err := net.Dial(client.URL())
			if err != nil {
				slog.Error("reconnect failed", "err", err)
				window.SetShouldClose(true)
				continue
			}
			client = reconnected
			eng.ClearAndReload(camera.Position)
		default:
		}

		client.Dispatch(eng)

		eng.SetObserverPosition(camera.Position)
		frustum := camera.Frustum()
		eng.SetCamera(&frustum, camera.Forward())
		eng.Update(dt)

		gl.ClearColor(0.45, 0.65, 0.9, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		renderer.Render(eng.Batch(), camera)
		window.SwapBuffers()

		if d := time.Since(frameStart); d > 16*time.Millisecond {
			slog.Debug("slow frame", "took", d, "top", profiling.TopNCurrentFrame(5))
		}

		limitFPS(frameStart)
	}
}

// moveCamera is a minimal fly camera; the real player controller lives in
// the outer game.
func moveCamera(window *glfw.Window, camera *graphics.Camera, dt float32) {
	const speed = 24.0
	const turn = 90.0

	forward := camera.Forward()
	right := forward.Cross(mgl32.Vec3{0, 1, 0}).Normalize()

	if window.GetKey(glfw.KeyW) == glfw.Press {
		camera.Position = camera.Position.Add(forward.Mul(speed * dt))
	}
	if window.GetKey(glfw.KeyS) == glfw.Press {
		camera.Position = camera.Position.Sub(forward.Mul(speed * dt))
	}
	if window.GetKey(glfw.KeyD) == glfw.Press {
		camera.Position = camera.Position.Add(right.Mul(speed * dt))
	}
	if window.GetKey(glfw.KeyA) == glfw.Press {
		camera.Position = camera.Position.Sub(right.Mul(speed * dt))
	}
	if window.GetKey(glfw.KeyLeft) == glfw.Press {
		camera.Yaw -= turn * dt
	}
	if window.GetKey(glfw.KeyRight) == glfw.Press {
		camera.Yaw += turn * dt
	}
	if window.GetKey(glfw.KeyUp) == glfw.Press {
		camera.Pitch = clampPitch(camera.Pitch + turn*dt)
	}
	if window.GetKey(glfw.KeyDown) == glfw.Press {
		camera.Pitch = clampPitch(camera.Pitch - turn*dt)
	}
}

func clampPitch(p float32) float32 {
	if p > 89 {
		return 89
	}
	if p < -89 {
		return -89
	}
	return p
}

func limitFPS(frameStart time.Time) {
	limit := config.GetFPSLimit()
	if limit <= 0 {
		return
	}
	frame := time.Second / time.Duration(limit)
	if d := time.Since(frameStart); d < frame {
		time.Sleep(frame - d)
	}
}
