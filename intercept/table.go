package intercept

import "github.com/olcf/wraprun/comm"

// handleTable maps every operation of the runtime surface to the positions
// of its context-handle arguments, following the argument layouts documented
// in the comm.Op catalog. The forwarding routine substitutes exactly these
// positions and nothing else.
var handleTable = map[comm.Op][]int{
	// Point-to-point sends: (buf, dest, tag, comm).
	comm.OpSend:      {3},
	comm.OpBsend:     {3},
	comm.OpSsend:     {3},
	comm.OpRsend:     {3},
	comm.OpIsend:     {3},
	comm.OpIbsend:    {3},
	comm.OpIssend:    {3},
	comm.OpIrsend:    {3},
	comm.OpSendInit:  {3},
	comm.OpBsendInit: {3},
	comm.OpSsendInit: {3},
	comm.OpRsendInit: {3},

	// Receives and probes: (source, tag, comm).
	comm.OpRecv:     {2},
	comm.OpIrecv:    {2},
	comm.OpRecvInit: {2},
	comm.OpProbe:    {2},
	comm.OpIprobe:   {2},
	comm.OpMprobe:   {2},
	comm.OpImprobe:  {2},

	// Combined send-receive: (buf, dest, sendtag, source, recvtag, comm).
	comm.OpSendrecv:        {5},
	comm.OpSendrecvReplace: {5},

	// Packing.
	comm.OpPack:     {3},
	comm.OpUnpack:   {3},
	comm.OpPackSize: {1},

	// Rootless collectives.
	comm.OpBarrier:     {0},
	comm.OpIbarrier:    {0},
	comm.OpAllgather:   {1},
	comm.OpAllgatherv:  {1},
	comm.OpIallgather:  {1},
	comm.OpIallgatherv: {1},
	comm.OpAlltoall:    {1},
	comm.OpAlltoallv:   {1},
	comm.OpAlltoallw:   {1},
	comm.OpIalltoall:   {1},
	comm.OpIalltoallv:  {1},
	comm.OpIalltoallw:  {1},

	// Rooted collectives: (buf, root, comm).
	comm.OpBcast:     {2},
	comm.OpIbcast:    {2},
	comm.OpGather:    {2},
	comm.OpGatherv:   {2},
	comm.OpIgather:   {2},
	comm.OpIgatherv:  {2},
	comm.OpScatter:   {2},
	comm.OpScatterv:  {2},
	comm.OpIscatter:  {2},
	comm.OpIscatterv: {2},

	// Reductions: rooted (value, op, root, comm); rootless (value, op, comm).
	comm.OpReduce:              {3},
	comm.OpIreduce:             {3},
	comm.OpAllreduce:           {2},
	comm.OpIallreduce:          {2},
	comm.OpReduceScatter:       {2},
	comm.OpIreduceScatter:      {2},
	comm.OpReduceScatterBlock:  {2},
	comm.OpIreduceScatterBlock: {2},
	comm.OpScan:                {2},
	comm.OpIscan:               {2},
	comm.OpExscan:              {2},
	comm.OpIexscan:             {2},

	// Neighborhood collectives: (sendbuf, comm).
	comm.OpNeighborAllgather:   {1},
	comm.OpNeighborAllgatherv:  {1},
	comm.OpNeighborAlltoall:    {1},
	comm.OpNeighborAlltoallv:   {1},
	comm.OpNeighborAlltoallw:   {1},
	comm.OpIneighborAllgather:  {1},
	comm.OpIneighborAllgatherv: {1},
	comm.OpIneighborAlltoall:   {1},
	comm.OpIneighborAlltoallv:  {1},
	comm.OpIneighborAlltoallw:  {1},

	// Context queries: (comm, ...).
	comm.OpCommSize:        {0},
	comm.OpCommRank:        {0},
	comm.OpCommGroup:       {0},
	comm.OpCommTestInter:   {0},
	comm.OpCommRemoteSize:  {0},
	comm.OpCommRemoteGroup: {0},
	comm.OpCommGetName:     {0},
	comm.OpCommGetInfo:     {0},
	comm.OpTopoTest:        {0},

	// Comparison and construction.
	comm.OpCommCompare:     {0, 1},
	comm.OpCommDup:         {0},
	comm.OpCommDupWithInfo: {0},
	comm.OpCommIdup:        {0},
	comm.OpCommCreate:      {0},
	comm.OpCommCreateGroup: {0},
	comm.OpCommSplit:       {0},
	comm.OpCommSplitType:   {0},

	// Release and abnormal termination. Free and Disconnect are additionally
	// special-cased by the forwarding routine (redirect-on-release).
	comm.OpCommFree:       {0},
	comm.OpCommDisconnect: {0},
	comm.OpAbort:          {0},

	// Inter-context construction.
	comm.OpIntercommCreate: {0, 2},
	comm.OpIntercommMerge:  {0},

	// Attribute caching and naming.
	comm.OpAttrPut:        {0},
	comm.OpAttrGet:        {0},
	comm.OpAttrDelete:     {0},
	comm.OpCommSetAttr:    {0},
	comm.OpCommGetAttr:    {0},
	comm.OpCommDeleteAttr: {0},
	comm.OpCommSetName:    {0},
	comm.OpCommSetInfo:    {0},

	// Error handlers.
	comm.OpErrhandlerSet:      {0},
	comm.OpErrhandlerGet:      {0},
	comm.OpCommSetErrhandler:  {0},
	comm.OpCommGetErrhandler:  {0},
	comm.OpCommCallErrhandler: {0},

	// Process topologies.
	comm.OpCartCreate:              {0},
	comm.OpCartdimGet:              {0},
	comm.OpCartGet:                 {0},
	comm.OpCartRank:                {0},
	comm.OpCartCoords:              {0},
	comm.OpCartShift:               {0},
	comm.OpCartSub:                 {0},
	comm.OpCartMap:                 {0},
	comm.OpGraphCreate:             {0},
	comm.OpGraphdimsGet:            {0},
	comm.OpGraphGet:                {0},
	comm.OpGraphNeighborsCount:     {0},
	comm.OpGraphNeighbors:          {0},
	comm.OpGraphMap:                {0},
	comm.OpDistGraphCreate:         {0},
	comm.OpDistGraphCreateAdjacent: {0},
	comm.OpDistGraphNeighborsCount: {0},
	comm.OpDistGraphNeighbors:      {0},

	// Process management.
	comm.OpCommConnect:       {3},
	comm.OpCommSpawn:         {5},
	comm.OpCommSpawnMultiple: {5},

	// One-sided window creation.
	comm.OpWinCreate:         {4},
	comm.OpWinAllocate:       {3},
	comm.OpWinAllocateShared: {3},
	comm.OpWinCreateDynamic:  {1},

	// Failure queries.
	comm.OpCommGroupFailed:       {0},
	comm.OpCommRemoteGroupFailed: {0},
	comm.OpCommReenableAnysource: {0},
}

// HandlePositions returns the context-handle argument positions for op and
// whether op belongs to the interposed surface.
func HandlePositions(op comm.Op) ([]int, bool) {
	positions, ok := handleTable[op]

	return positions, ok
}

// Ops returns every operation in the dispatch table.
func Ops() []comm.Op {
	ops := make([]comm.Op, 0, len(handleTable))
	for op := range handleTable {
		ops = append(ops, op)
	}

	return ops
}
