package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"runtime"

	"github.com/golang/protobuf/proto"

	"github.com/SPohlabeln/S2-TCVIS/utils"
	mp "github.com/SPohlabeln/S2-TCVIS/worker/mosaicprocess"
	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"
)

func sendOutput(out *pb.Result, conn net.Conn) error {
	outb, err := proto.Marshal(out)
	if err != nil {
		return err
	}

	_, err = conn.Write(outb)
	if err != nil {
		return err
	}

	return nil
}

func dataHandler(conn net.Conn, verbose bool) {
	defer conn.Close()
	out := &pb.Result{}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, conn)
	if err != nil {
		out.Error = fmt.Sprintf("Error reading data %d from socket: %v", n, err)
		sendOutput(out, conn)
		return
	}

	in := new(pb.MosaicGranule)
	err = proto.Unmarshal(buf.Bytes(), in)
	if err != nil {
		out.Error = fmt.Sprintf("Error unmarshaling protobuf request: %v", err)
		sendOutput(out, conn)
		return
	}

	switch in.Operation {
	case "warp":
		out = mp.WarpBand(in, verbose)
	case "info":
		out = mp.ProbeGrid(in)
	case "median":
		out = mp.MedianTile(in)
	default:
		out.Error = fmt.Sprintf("Unknown operation: %s", in.Operation)
	}

	err = sendOutput(out, conn)
	if err != nil {
		log.Println(err)
	}
}

func init() {
	if _, ok := os.LookupEnv("GOMAXPROCS"); !ok {
		runtime.GOMAXPROCS(2)
	}

	utils.InitGdal()
}

func main() {
	verbose := flag.Bool("verbose", false, "verbose logging")
	sock := flag.String("sock", "", "unix socket path")
	memLimit := flag.Int("mem_limit", 0, "resident memory limit in MB, 0 disables the watchdog")
	confFile := flag.String("conf", "", "config.json path for object-store session settings")
	flag.Parse()

	if len(*confFile) > 0 {
		conf := &utils.Config{}
		if err := conf.LoadConfigFile(*confFile); err != nil {
			log.Fatal(err)
		}
		utils.ApplyStorageConfig(&conf.ServiceConfig.Storage)
	}

	mp.StartMemoryWatchdog(*memLimit, 0)

	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: *sock, Net: "unix"})
	if err != nil {
		log.Fatal(err)
		return
	}
	defer os.Remove(*sock)

	log.Println("Listening on", *sock)

	for {
		conn, err := l.Accept()
		if err != nil {
			log.Fatal(err)
			return
		}

		dataHandler(conn, *verbose)
	}
}
