// Package wraprun partitions a job-wide communication context into
// independent partitions and transparently rescopes the hosted
// application's job-wide operations onto its own partition.
//
// Each process resolves its partition color, working directory, and
// environment overrides from a shared rank-indexed configuration file,
// splits the job context by color during wrapped initialization, and from
// then on substitutes the partition handle wherever the application
// passes the job-wide handle. Unmodified programs written against the
// whole job therefore run side by side, one binary per partition, under a
// single launch.
//
// The Manager also contains failures: a crash, fatal signal, or non-zero
// exit in one partition drains this process's hold on the job context and
// reports success to the launcher, so sibling partitions neither hang in
// collectives nor get torn down.
//
// Basic usage:
//
//	cfg, err := wraprun.FromEnv()
//	if err != nil {
//		log.Fatal(err)
//	}
//	mgr, err := wraprun.NewManager(cfg, rt, wraprun.WithLogger(appLogger))
//	if err != nil {
//		log.Fatal(err)
//	}
//	os.Exit(mgr.Run(func() int {
//		return app.Main(mgr.Runtime())
//	}))
package wraprun
