// Command planner is the workstation side: it loads the persisted
// map/paths files, dials the robot, and exposes a small line-oriented
// console for sending paths and issuing commands (spec.md §4.I: "the
// planner GUI supplies the core with commands... a callback to receive
// pose/status events"). This is the headless backend a GUI would sit on
// top of.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/omniplanner/pathbridge/internal/config"
	"github.com/omniplanner/pathbridge/internal/logging"
	"github.com/omniplanner/pathbridge/internal/mapmodel"
	"github.com/omniplanner/pathbridge/internal/protocol"
)

// console implements protocol.ClientHandler by logging every inbound
// event; a GUI would instead forward these to its own view model.
type console struct {
	logger *zap.Logger
}

func (c *console) OnRobotPose(m protocol.RobotPoseMsg) {
	c.logger.Debug("robot pose", zap.Float64("x", m.X), zap.Float64("y", m.Y), zap.Float64("heading", m.Heading))
}

func (c *console) OnStatus(m protocol.StatusMsg) {
	c.logger.Info("robot status", zap.String("status", m.Status), zap.Bool("moving", m.Moving))
}

func (c *console) OnPathExecutionStarted(protocol.PathExecutionStartedMsg) {
	c.logger.Info("path execution started")
}

func (c *console) OnPathExecutionFinished(m protocol.PathExecutionFinishedMsg) {
	c.logger.Info("path execution finished", zap.Bool("success", m.Success))
}

func (c *console) OnConnected() {
	c.logger.Info("connected to robot")
}

func (c *console) OnDisconnected(err error) {
	c.logger.Warn("disconnected from robot", zap.Error(err))
}

func main() {
	cfg, err := config.LoadPlanner()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level)
	defer logger.Sync()

	addr := fmt.Sprintf("%s:%d", cfg.Connect.Host, cfg.Connect.Port)
	handler := &console{logger: logger}
	client := protocol.NewClient(addr, handler, logger)

	paths, err := mapmodel.LoadPathsFile(cfg.Files.PathsPath)
	if err != nil {
		logger.Warn("no paths file loaded, starting empty", zap.Error(err))
		paths = mapmodel.NewPathCollection()
	}

	fmt.Println("planner ready. commands: connect, disconnect, send <path>, run <path>, stop, resume, state, list, quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "connect":
			if err := client.Connect(); err != nil {
				fmt.Println("connect failed:", err)
			}
		case "disconnect":
			client.Disconnect()
		case "send":
			if len(fields) < 2 {
				fmt.Println("usage: send <path-name>")
				continue
			}
			p, ok := paths.ByName(fields[1])
			if !ok {
				fmt.Println("no such path:", fields[1])
				continue
			}
			if !client.SendPath(p) {
				fmt.Println("send failed: not connected")
			}
		case "run":
			if len(fields) < 2 {
				fmt.Println("usage: run <path-name>")
				continue
			}
			if !client.SendCommand("executePath", map[string]any{"name": fields[1]}) {
				fmt.Println("run failed: not connected")
			}
		case "stop":
			client.SendCommand("stop", nil)
		case "resume":
			client.SendCommand("resume", nil)
		case "state":
			client.GetState()
		case "list":
			for _, name := range namesOf(paths) {
				fmt.Println(" -", name)
			}
		case "quit":
			client.Disconnect()
			return
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func namesOf(c mapmodel.PathCollection) []string {
	names := make([]string, len(c.Paths))
	for i, p := range c.Paths {
		names[i] = p.Name
	}
	return names
}
