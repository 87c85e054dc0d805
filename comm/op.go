package comm

// Op identifies one operation of the runtime's public surface.
//
// The catalog below names every operation whose signature carries one or more
// context handles. Argument layouts for Invoke are fixed per family and
// documented on the family's first constant; the interposition layer's
// dispatch table records the handle positions for each entry and must agree
// with these layouts.
type Op string

// Point-to-point sends.
//
// Layout: (buf []byte, dest int, tag int, comm Comm). Non-blocking and
// persistent variants return a Request.
const (
	OpSend      Op = "Send"
	OpBsend     Op = "Bsend"
	OpSsend     Op = "Ssend"
	OpRsend     Op = "Rsend"
	OpIsend     Op = "Isend"
	OpIbsend    Op = "Ibsend"
	OpIssend    Op = "Issend"
	OpIrsend    Op = "Irsend"
	OpSendInit  Op = "Send_init"
	OpBsendInit Op = "Bsend_init"
	OpSsendInit Op = "Ssend_init"
	OpRsendInit Op = "Rsend_init"
)

// Point-to-point receives and probes.
//
// Layout: (source int, tag int, comm Comm). Receives return ([]byte, Status);
// probes return Status; Iprobe returns (Status, bool).
const (
	OpRecv     Op = "Recv"
	OpIrecv    Op = "Irecv"
	OpRecvInit Op = "Recv_init"
	OpProbe    Op = "Probe"
	OpIprobe   Op = "Iprobe"
	OpMprobe   Op = "Mprobe"
	OpImprobe  Op = "Improbe"
)

// Combined send-receive.
//
// Layout: (buf []byte, dest int, sendtag int, source int, recvtag int,
// comm Comm); returns ([]byte, Status).
const (
	OpSendrecv        Op = "Sendrecv"
	OpSendrecvReplace Op = "Sendrecv_replace"
)

// Packing.
//
// Layout: Pack (inbuf []byte, outbuf []byte, position int, comm Comm);
// Unpack mirrors it; PackSize (count int, comm Comm).
const (
	OpPack     Op = "Pack"
	OpUnpack   Op = "Unpack"
	OpPackSize Op = "Pack_size"
)

// Rootless collectives over the whole context.
//
// Layout: Barrier (comm Comm); Allgather/Alltoall families
// (sendbuf []byte, comm Comm); vector and w variants carry their counts
// opaquely inside sendbuf framing.
const (
	OpBarrier     Op = "Barrier"
	OpIbarrier    Op = "Ibarrier"
	OpAllgather   Op = "Allgather"
	OpAllgatherv  Op = "Allgatherv"
	OpIallgather  Op = "Iallgather"
	OpIallgatherv Op = "Iallgatherv"
	OpAlltoall    Op = "Alltoall"
	OpAlltoallv   Op = "Alltoallv"
	OpAlltoallw   Op = "Alltoallw"
	OpIalltoall   Op = "Ialltoall"
	OpIalltoallv  Op = "Ialltoallv"
	OpIalltoallw  Op = "Ialltoallw"
)

// Rooted collectives.
//
// Layout: Bcast (buf []byte, root int, comm Comm); Gather/Scatter families
// (buf []byte, root int, comm Comm).
const (
	OpBcast     Op = "Bcast"
	OpIbcast    Op = "Ibcast"
	OpGather    Op = "Gather"
	OpGatherv   Op = "Gatherv"
	OpIgather   Op = "Igather"
	OpIgatherv  Op = "Igatherv"
	OpScatter   Op = "Scatter"
	OpScatterv  Op = "Scatterv"
	OpIscatter  Op = "Iscatter"
	OpIscatterv Op = "Iscatterv"
)

// Reductions.
//
// Layout: rooted variants (value int64, op ReduceOp, root int, comm Comm);
// rootless variants (value int64, op ReduceOp, comm Comm).
const (
	OpReduce              Op = "Reduce"
	OpIreduce             Op = "Ireduce"
	OpAllreduce           Op = "Allreduce"
	OpIallreduce          Op = "Iallreduce"
	OpReduceScatter       Op = "Reduce_scatter"
	OpIreduceScatter      Op = "Ireduce_scatter"
	OpReduceScatterBlock  Op = "Reduce_scatter_block"
	OpIreduceScatterBlock Op = "Ireduce_scatter_block"
	OpScan                Op = "Scan"
	OpIscan               Op = "Iscan"
	OpExscan              Op = "Exscan"
	OpIexscan             Op = "Iexscan"
)

// Neighborhood collectives over a topology-bearing context.
//
// Layout: (sendbuf []byte, comm Comm).
const (
	OpNeighborAllgather   Op = "Neighbor_allgather"
	OpNeighborAllgatherv  Op = "Neighbor_allgatherv"
	OpNeighborAlltoall    Op = "Neighbor_alltoall"
	OpNeighborAlltoallv   Op = "Neighbor_alltoallv"
	OpNeighborAlltoallw   Op = "Neighbor_alltoallw"
	OpIneighborAllgather  Op = "Ineighbor_allgather"
	OpIneighborAllgatherv Op = "Ineighbor_allgatherv"
	OpIneighborAlltoall   Op = "Ineighbor_alltoall"
	OpIneighborAlltoallv  Op = "Ineighbor_alltoallv"
	OpIneighborAlltoallw  Op = "Ineighbor_alltoallw"
)

// Context queries.
//
// Layout: (comm Comm) unless noted.
const (
	OpCommSize        Op = "Comm_size"
	OpCommRank        Op = "Comm_rank"
	OpCommGroup       Op = "Comm_group"
	OpCommTestInter   Op = "Comm_test_inter"
	OpCommRemoteSize  Op = "Comm_remote_size"
	OpCommRemoteGroup Op = "Comm_remote_group"
	OpCommGetName     Op = "Comm_get_name"
	OpCommGetInfo     Op = "Comm_get_info"
	OpTopoTest        Op = "Topo_test"
)

// Context comparison and construction.
//
// Layout: Compare (a Comm, b Comm); Dup (comm Comm); DupWithInfo
// (comm Comm, info any); Create (comm Comm, group any); CreateGroup
// (comm Comm, group any, tag int); Split (comm Comm, color int, key int);
// SplitType (comm Comm, splitType int, key int, info any).
const (
	OpCommCompare     Op = "Comm_compare"
	OpCommDup         Op = "Comm_dup"
	OpCommDupWithInfo Op = "Comm_dup_with_info"
	OpCommIdup        Op = "Comm_idup"
	OpCommCreate      Op = "Comm_create"
	OpCommCreateGroup Op = "Comm_create_group"
	OpCommSplit       Op = "Comm_split"
	OpCommSplitType   Op = "Comm_split_type"
)

// Context release and abnormal termination.
//
// Layout: Free/Disconnect (comm Comm); Abort (comm Comm, code int).
const (
	OpCommFree       Op = "Comm_free"
	OpCommDisconnect Op = "Comm_disconnect"
	OpAbort          Op = "Abort"
)

// Inter-context construction.
//
// Layout: IntercommCreate (localComm Comm, localLeader int, peerComm Comm,
// remoteLeader int, tag int); IntercommMerge (intercomm Comm, high bool).
const (
	OpIntercommCreate Op = "Intercomm_create"
	OpIntercommMerge  Op = "Intercomm_merge"
)

// Attribute caching and naming.
//
// Layout: (comm Comm, keyval int[, value any]); SetName (comm Comm,
// name string); SetInfo (comm Comm, info any).
const (
	OpAttrPut        Op = "Attr_put"
	OpAttrGet        Op = "Attr_get"
	OpAttrDelete     Op = "Attr_delete"
	OpCommSetAttr    Op = "Comm_set_attr"
	OpCommGetAttr    Op = "Comm_get_attr"
	OpCommDeleteAttr Op = "Comm_delete_attr"
	OpCommSetName    Op = "Comm_set_name"
	OpCommSetInfo    Op = "Comm_set_info"
)

// Error handlers.
//
// Layout: (comm Comm[, errhandler any]); CallErrhandler (comm Comm,
// code int).
const (
	OpErrhandlerSet      Op = "Errhandler_set"
	OpErrhandlerGet      Op = "Errhandler_get"
	OpCommSetErrhandler  Op = "Comm_set_errhandler"
	OpCommGetErrhandler  Op = "Comm_get_errhandler"
	OpCommCallErrhandler Op = "Comm_call_errhandler"
)

// Process topologies.
//
// Layout: creation ops take the source context first (comm Comm, ...);
// queries take (comm Comm[, rank/dims arguments]).
const (
	OpCartCreate              Op = "Cart_create"
	OpCartdimGet              Op = "Cartdim_get"
	OpCartGet                 Op = "Cart_get"
	OpCartRank                Op = "Cart_rank"
	OpCartCoords              Op = "Cart_coords"
	OpCartShift               Op = "Cart_shift"
	OpCartSub                 Op = "Cart_sub"
	OpCartMap                 Op = "Cart_map"
	OpGraphCreate             Op = "Graph_create"
	OpGraphdimsGet            Op = "Graphdims_get"
	OpGraphGet                Op = "Graph_get"
	OpGraphNeighborsCount     Op = "Graph_neighbors_count"
	OpGraphNeighbors          Op = "Graph_neighbors"
	OpGraphMap                Op = "Graph_map"
	OpDistGraphCreate         Op = "Dist_graph_create"
	OpDistGraphCreateAdjacent Op = "Dist_graph_create_adjacent"
	OpDistGraphNeighborsCount Op = "Dist_graph_neighbors_count"
	OpDistGraphNeighbors      Op = "Dist_graph_neighbors"
)

// Process management.
//
// Layout: Connect (port string, info any, root int, comm Comm); Spawn
// (command string, argv []string, maxprocs int, info any, root int,
// comm Comm); SpawnMultiple (commands []string, argvs [][]string,
// maxprocs []int, infos []any, root int, comm Comm).
const (
	OpCommConnect       Op = "Comm_connect"
	OpCommSpawn         Op = "Comm_spawn"
	OpCommSpawnMultiple Op = "Comm_spawn_multiple"
)

// One-sided window creation.
//
// Layout: WinCreate (base []byte, size int, dispUnit int, info any,
// comm Comm); WinAllocate/WinAllocateShared (size int, dispUnit int,
// info any, comm Comm); WinCreateDynamic (info any, comm Comm).
const (
	OpWinCreate         Op = "Win_create"
	OpWinAllocate       Op = "Win_allocate"
	OpWinAllocateShared Op = "Win_allocate_shared"
	OpWinCreateDynamic  Op = "Win_create_dynamic"
)

// Failure queries (extended surface).
//
// Layout: (comm Comm).
const (
	OpCommGroupFailed       Op = "Comm_group_failed"
	OpCommRemoteGroupFailed Op = "Comm_remote_group_failed"
	OpCommReenableAnysource Op = "Comm_reenable_anysource"
)
