package main

import (
	"bufio"
	"fmt"
	"io"
	"math/bits"

	"github.com/lipeining/jobrun/configs"
	"github.com/lipeining/jobrun/container"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// resolveLimits merges the profile named by --profile with the limit flags
// and builds the validated limits.
func resolveLimits(context *cli.Context, target string) (*configs.Limits, error) {
	raw := rawLimits(context)
	if path := context.GlobalString("profile"); path != "" {
		p, err := configs.LoadProfile(path)
		if err != nil {
			return nil, err
		}
		raw, target = p.Merge(raw, target)
	}
	return configs.Build(raw, target)
}

// checkAffinity warns when the mask selects no processor present on this
// host; the OS rejects such a mask when it is applied.
func checkAffinity(mask uint64) {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		logrus.WithError(err).Debug("count logical processors")
		return
	}
	if n >= 64 {
		return
	}
	if mask&(uint64(1)<<uint(n)-1) == 0 {
		logrus.WithFields(logrus.Fields{
			"mask":       fmt.Sprintf("%b", mask),
			"processors": n,
			"highest":    bits.Len64(mask) - 1,
		}).Warn("affinity mask selects no processor on this host")
	}
}

func launch(context *cli.Context, target string, in io.Reader, out io.Writer) error {
	limits, err := resolveLimits(context, target)
	if err != nil {
		return err
	}
	printStatus(out, limits)
	if limits.Empty() {
		logrus.Info("no limits requested, the job only ties the target to this console")
	}
	if limits.AffinityMask != nil {
		checkAffinity(*limits.AffinityMask)
	}

	result, err := container.Run(limits, container.NewFactory(), container.NewSpawner())
	if err != nil {
		return err
	}
	defer func() {
		if err := result.Close(); err != nil {
			logrus.WithError(err).Warn("release job")
		}
	}()

	fmt.Fprintln(out, "Press ENTER to exit the job")
	// EOF releases the job as well
	if _, err := bufio.NewReader(in).ReadString('\n'); err != nil && err != io.EOF {
		logrus.WithError(err).Debug("read console")
	}
	return nil
}
