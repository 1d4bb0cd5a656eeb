package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sarchlab/simbridge/bridge"
	"github.com/sarchlab/simbridge/messaging"
	"github.com/sarchlab/simbridge/sim"
	"github.com/sarchlab/simbridge/simulation"
)

var runFlags = struct {
	topic     string
	duration  float64
	period    float64
	transport string
	listen    []string
	bootstrap []string
	noMonitor bool
}{}

// heartbeatMsg is the demo payload published by the simulation.
type heartbeatMsg struct {
	Seq  uint64 `json:"seq"`
	Text string `json:"text"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a demo simulation with a publisher and a subscriber bridge",
	Run: func(_ *cobra.Command, _ []string) {
		runDemo()
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.topic, "topic", "heartbeat",
		"topic the bridges exchange messages on")
	runCmd.Flags().Float64Var(&runFlags.duration, "duration", 2.0,
		"virtual time to simulate, in seconds")
	runCmd.Flags().Float64Var(&runFlags.period, "period", 0.25,
		"publish period, in virtual seconds")
	runCmd.Flags().StringVar(&runFlags.transport, "transport", "memory",
		"messaging transport, memory or libp2p")
	runCmd.Flags().StringSliceVar(&runFlags.listen, "listen", nil,
		"libp2p listen multiaddrs")
	runCmd.Flags().StringSliceVar(&runFlags.bootstrap, "bootstrap", nil,
		"libp2p bootstrap peer multiaddrs")
	runCmd.Flags().BoolVar(&runFlags.noMonitor, "no-monitor", false,
		"disable the monitoring server")

	rootCmd.AddCommand(runCmd)
}

func runDemo() {
	_ = godotenv.Load()

	builder := simulation.MakeBuilder().WithNode(makeNode())

	if runFlags.noMonitor {
		builder = builder.WithoutMonitoring()
	} else if port := os.Getenv("MONITOR_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			log.Fatalf("invalid MONITOR_PORT %q: %v", port, err)
		}
		builder = builder.WithMonitorPort(p)
	}

	if output := os.Getenv("SIMBRIDGE_OUTPUT"); output != "" {
		builder = builder.WithOutputFileName(output)
	}

	s := builder.Build()
	defer s.Terminate()

	pub := bridge.MakePublisherBuilder().
		WithNode(s.Node()).
		WithPublishPeriod(sim.VTimeInSec(runFlags.period)).
		WithSource(heartbeatSource(s)).
		Build("HeartbeatPublisher", runFlags.topic)
	s.RegisterComponent(pub)

	sub := bridge.MakeSubscriberBuilder().
		WithNode(s.Node()).
		WithTimeTeller(s.Engine()).
		WithAllocator(func() any { return new(heartbeatMsg) }).
		Build("HeartbeatSubscriber", runFlags.topic)
	s.RegisterComponent(sub)
	defer sub.Unsubscribe()

	s.Init()

	step := sim.VTimeInSec(runFlags.period)
	end := sim.VTimeInSec(runFlags.duration)
	var seen uint64
	for t := step; t <= end; t += step {
		if err := s.StepTo(t); err != nil {
			log.Fatalf("simulation failed: %v", err)
		}

		// Each step publishes at least once, so synchronize to the
		// messaging layer before reading, instead of busy-polling.
		seen = sub.WaitForDelivery(seen)

		out := sub.Output().Eval(s.Simulator().Context())
		msg := out.(*heartbeatMsg)
		fmt.Printf("t=%.4f observed seq=%d text=%q (commits=%d, live=%d)\n",
			float64(s.Engine().CurrentTime()), msg.Seq, msg.Text,
			sub.MessageCount(s.Simulator().Context()),
			sub.LiveMessageCount())
	}
}

func heartbeatSource(s *simulation.Simulation) func(*sim.Context) any {
	return func(_ *sim.Context) any {
		now := float64(s.Engine().CurrentTime())
		return heartbeatMsg{
			Seq:  uint64(now/runFlags.period) + 1,
			Text: fmt.Sprintf("heartbeat at %.4f", now),
		}
	}
}

func makeNode() messaging.Node {
	switch runFlags.transport {
	case "memory", "":
		return messaging.NewMemoryNode()
	case "libp2p":
		node, err := messaging.NewLibp2pNode(context.Background(),
			messaging.Libp2pConfig{
				ListenAddrs: runFlags.listen,
				Bootstrap:   runFlags.bootstrap,
			})
		if err != nil {
			log.Fatalf("cannot create libp2p node: %v", err)
		}
		return node
	default:
		log.Fatalf("unknown transport %q", runFlags.transport)
		return nil
	}
}
