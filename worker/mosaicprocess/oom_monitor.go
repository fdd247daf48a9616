package mosaicprocess

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultWatchdogInterval = 10 * time.Second

type procInfo struct {
	KBytes  map[string]int64
	Strings map[string]string
}

func parseProcInfo(procPath string, lookupKeys []string) (*procInfo, error) {
	data, err := ioutil.ReadFile(procPath)
	if err != nil {
		return nil, err
	}

	keysKV := make(map[string]bool)
	for _, key := range lookupKeys {
		keysKV[key] = false
	}

	infoLookup := &procInfo{KBytes: make(map[string]int64), Strings: make(map[string]string)}

	numFound := 0
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		fields := strings.SplitN(line, ":", 2)
		if len(fields) != 2 {
			continue
		}

		key := strings.TrimSpace(fields[0])
		if _, found := keysKV[key]; !found {
			continue
		}
		keysKV[key] = true
		numFound++

		val := strings.TrimSpace(fields[1])
		unitSuffix := len(val) - 2
		if unitSuffix < 0 || val[unitSuffix:] != "kB" {
			infoLookup.Strings[key] = val
		} else {
			valInt, err := strconv.ParseInt(strings.TrimSpace(val[:unitSuffix]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: failed to parse %s", procPath, line)
			}
			infoLookup.KBytes[key] = valInt
		}

		if numFound == len(keysKV) {
			break
		}
	}

	for k, v := range keysKV {
		if !v {
			return nil, fmt.Errorf("%s: %s not found", procPath, k)
		}
	}

	return infoLookup, nil
}

func residentSetKB() (int64, error) {
	info, err := parseProcInfo("/proc/self/status", []string{"VmRSS"})
	if err != nil {
		return 0, err
	}
	return info.KBytes["VmRSS"], nil
}

// StartMemoryWatchdog enforces the per-worker memory limit. A worker
// above its limit exits so the pool replaces it with a fresh process;
// the task in flight fails and is retried by nothing here, matching
// the no-automatic-retry policy of the pipeline.
func StartMemoryWatchdog(memLimitMB int, interval time.Duration) {
	if memLimitMB <= 0 {
		return
	}
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}

	go func() {
		for {
			time.Sleep(interval)
			rssKB, err := residentSetKB()
			if err != nil {
				log.Printf("memory watchdog: %v", err)
				continue
			}

			if rssKB > int64(memLimitMB)*1024 {
				log.Printf("memory watchdog: RSS %d kB above limit %d MB, exiting", rssKB, memLimitMB)
				os.Exit(3)
			}
		}
	}()
}
