package main

import (
	"flag"
	"log"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gexec"
	"go.uber.org/zap"
)

type configuration struct {
	// BinaryPath is a prebuilt reporter binary. When empty the binary is built.
	BinaryPath string
	Package    string
}

var (
	cfg        configuration
	binaryPath string
)

func main() {
	flag.StringVar(&cfg.BinaryPath, "binary", "", "Path to a prebuilt testrail-reporter binary")
	flag.StringVar(&cfg.Package, "package", "github.com/kubev2v/testrail-reporter", "Package built when no binary is given")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	binaryPath = cfg.BinaryPath
	if binaryPath == "" {
		binaryPath, err = gexec.Build(cfg.Package)
		if err != nil {
			log.Fatalf("failed to build %s: %v", cfg.Package, err)
		}
		defer gexec.CleanupBuildArtifacts()
	}

	RegisterFailHandler(Fail)
	if !RunSpecs(&testing.T{}, "E2E Suite") {
		gexec.CleanupBuildArtifacts()
		os.Exit(1)
	}
}
