package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	pkgGrpc "github.com/vogiaan1904/ticketbottle-gateway/pkg/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const usage = `Usage: gwctl [-addr host:port] <command> [flags]

Commands:
  publish       Broadcast an event to a topic
  music-config  Update a server's music settings
`

func main() {
	addr := flag.String("addr", "localhost:50057", "Gateway gRPC address")
	timeout := flag.Duration("timeout", 5*time.Second, "Request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cli, cleanup, err := pkgGrpc.NewGatewayClient(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create gateway client: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "publish":
		err = publish(ctx, cli, args)
	case "music-config":
		err = musicConfig(ctx, cli, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		if st, ok := status.FromError(err); ok {
			fmt.Fprintf(os.Stderr, "❌ %s: %s\n", st.Code(), st.Message())
		} else {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
		os.Exit(1)
	}
	fmt.Println("✅ OK")
}

func publish(ctx context.Context, cli pkgGrpc.GatewayClient, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	topic := fs.String("topic", "", "Destination topic (required)")
	typ := fs.String("type", "", "Event type (required)")
	data := fs.String("data", "{}", "Event data as JSON")
	_ = fs.Parse(args)

	if *topic == "" || *typ == "" {
		fs.Usage()
		return fmt.Errorf("--topic and --type are required")
	}

	var payload any
	if err := json.Unmarshal([]byte(*data), &payload); err != nil {
		return fmt.Errorf("invalid --data: %w", err)
	}

	req, err := structpb.NewStruct(map[string]any{
		"topic": *topic,
		"type":  *typ,
		"data":  payload,
	})
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	_, err = cli.Publish(ctx, req)
	return err
}

func musicConfig(ctx context.Context, cli pkgGrpc.GatewayClient, args []string) error {
	fs := flag.NewFlagSet("music-config", flag.ExitOnError)
	serverID := fs.String("server", "", "Server ID (required)")
	enabled := fs.Bool("enabled", true, "Whether music commands are accepted")
	platforms := fs.String("platforms", "", "Comma separated allowed platforms; empty allows all")
	maxQueue := fs.Int("max-queue", 100, "Maximum queue length")
	_ = fs.Parse(args)

	if *serverID == "" {
		fs.Usage()
		return fmt.Errorf("--server is required")
	}

	fields := map[string]any{
		"serverId":     *serverID,
		"enabled":      *enabled,
		"maxQueueSize": *maxQueue,
	}
	if *platforms != "" {
		var list []any
		for _, p := range strings.Split(*platforms, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		fields["allowedPlatforms"] = list
	}

	req, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	_, err = cli.UpdateMusicConfig(ctx, req)
	return err
}
