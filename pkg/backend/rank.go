package backend

import (
	"os"
	"strconv"
	"strings"
)

// RankVars lists the environment variables launchers use to publish a task's rank,
// in lookup order.
var RankVars = []string{
	"YOGRT_RANK",
	"SLURM_PROCID",
	"PMI_RANK",
	"OMPI_COMM_WORLD_RANK",
	"PMIX_RANK",
	"MV2_COMM_WORLD_RANK",
}

// RankFromEnv returns the first parseable rank among vars (RankVars when empty).
// Missing or invalid values leave the task authoritative (rank 0).
func RankFromEnv(vars ...string) int {
	if len(vars) == 0 {
		vars = RankVars
	}
	for _, k := range vars {
		v, ok := os.LookupEnv(k)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			continue
		}
		return n
	}
	return 0
}
