package launcher

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-runtime/flags"
	"github.com/rony4d/go-opera-runtime/integration"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/state"
)

var (
	versionCommand = cli.Command{
		Name:   "version",
		Usage:  "Print the launcher and runtime versions",
		Action: printVersion,
	}
	metadataCommand = cli.Command{
		Name:   "metadata",
		Usage:  "Print the module metadata of the runtime as JSON",
		Action: printMetadata,
	}
	devChainCommand = cli.Command{
		Name:   "devchain",
		Usage:  "Author blocks of a local fake network",
		Flags:  flags.DevChainFlags(),
		Action: devChain,
	}
	sessionKeysCommand = cli.Command{
		Name:   "session-keys",
		Usage:  "Generate a session key bundle",
		Flags:  flags.KeyFlags(),
		Action: sessionKeys,
	}
	dumpConfigCommand = cli.Command{
		Name:   "dumpconfig",
		Usage:  "Print the effective configuration as TOML",
		Action: dumpConfig,
	}
)

func printVersion(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	preset, err := cfg.Preset()
	if err != nil {
		return err
	}
	v := preset.Rules.Version
	fmt.Println("Launcher:", Version)
	fmt.Println("Network:", preset.Rules.Name)
	fmt.Printf("Runtime: %s/%s spec %d impl %d tx %d\n", v.SpecName, v.ImplName, v.SpecVersion, v.ImplVersion, v.TxVersion)
	return nil
}

func printMetadata(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	preset, err := cfg.Preset()
	if err != nil {
		return err
	}
	rt, err := integration.MakeRuntime(preset.Rules, state.NewMemory(), integration.Host{})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rt.Metadata())
}

func sessionKeys(ctx *cli.Context) error {
	var seed []byte
	if s := ctx.String(flags.SeedFlag.Name); s != "" {
		seed = []byte(s)
	}
	keys, _, err := validatorpk.GenerateSessionKeys(seed)
	if err != nil {
		return err
	}
	raw, err := keys.Encode()
	if err != nil {
		return err
	}
	fmt.Println("0x" + hex.EncodeToString(raw))
	for _, tk := range keys.Typed() {
		fmt.Printf("%s: %s\n", tk.Type, tk.Key)
	}
	return nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	return toml.NewEncoder(os.Stdout).Encode(cfg)
}

func devChain(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	log, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}
	preset, _ := cfg.Preset()
	interval, _ := cfg.BlockInterval()

	srv, err := startMetrics(cfg.Metrics, log)
	if err != nil {
		return err
	}
	if srv != nil {
		defer srv.Close()
	}

	chain, err := integration.NewFakeChain(preset, integration.Host{Log: log})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"network":    preset.Rules.Name,
		"validators": len(chain.Validators),
		"genesis":    chain.Genesis.Hash(),
	}).Info("Genesis applied")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := uint64(0); cfg.DevChain.Blocks == 0 || n < cfg.DevChain.Blocks; n++ {
		select {
		case <-sigs:
			log.Info("Got interrupt, shutting down")
			return nil
		case <-ticker.C:
		}
		block, err := chain.ProduceBlock()
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"number":     block.Header.Number,
			"hash":       block.Header.Hash(),
			"slot":       chain.Slot(),
			"extrinsics": len(block.Extrinsics),
		}).Info("New block")
		chain.OffchainWorker(&block.Header)
	}
	return nil
}
