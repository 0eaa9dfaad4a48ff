package unit

const usecPerSec = 1_000_000

// signatures is the unit property catalog. The signatures come from
// systemd's own property tables (src/core/dbus-*.c); the renaming
// rules mirror what systemd's client tools accept on top of them.
var signatures = map[string]Rule{
	// Dependencies and ordering.
	"Service":              Fixed("s"),
	"Requires":             Fixed("as"),
	"Requisite":            Fixed("as"),
	"Wants":                Fixed("as"),
	"BindsTo":              Fixed("as"),
	"PartOf":               Fixed("as"),
	"RequiredBy":           Fixed("as"),
	"RequisiteOf":          Fixed("as"),
	"WantedBy":             Fixed("as"),
	"BoundBy":              Fixed("as"),
	"ConsistsOf":           Fixed("as"),
	"Conflicts":            Fixed("as"),
	"ConflictedBy":         Fixed("as"),
	"Before":               Fixed("as"),
	"After":                Fixed("as"),
	"OnFailure":            Fixed("as"),
	"Triggers":             Fixed("as"),
	"TriggeredBy":          Fixed("as"),
	"PropagatesReloadTo":   Fixed("as"),
	"ReloadPropagatedFrom": Fixed("as"),
	"JoinsNamespaceOf":     Fixed("as"),
	"RequiresMountsFor":    Fixed("as"),
	"Documentation":        Fixed("as"),

	// Generic unit switches.
	"SourcePath":               Fixed("s"),
	"StopWhenUnneeded":         Fixed("b"),
	"RefuseManualStart":        Fixed("b"),
	"RefuseManualStop":         Fixed("b"),
	"AllowIsolate":             Fixed("b"),
	"DefaultDependencies":      Fixed("b"),
	"OnFailureJobMode":         Fixed("s"),
	"IgnoreOnIsolate":          Fixed("b"),
	"JobTimeoutAction":         Fixed("s"),
	"JobTimeoutRebootArgument": Fixed("s"),
	"Conditions":               Fixed("a(sbbsi)"),
	"Asserts":                  Fixed("a(sbbsi)"),
	"FailureAction":            Fixed("s"),
	"SuccessAction":            Fixed("s"),
	"RebootArgument":           Fixed("s"),
	"CollectMode":              Fixed("s"),

	// Service identity.
	"User":                   Fixed("s"),
	"Type":                   Fixed("s"),
	"Group":                  Fixed("s"),
	"Nice":                   Fixed("i"),
	"DynamicUser":            Fixed("b"),
	"Personality":            Fixed("s"),
	"Description":            Fixed("s"),
	"NotifyAccess":           Fixed("s"),
	"BusName":                Fixed("s"),
	"RemainAfterExit":        Fixed("b"),
	"NoNewPrivileges":        Fixed("b"),
	"RootDirectoryStartOnly": Fixed("b"),
	"PermissionsStartOnly":   Fixed("b"),

	// Exec command lists.
	"ExecStartPre":  Fixed("a(sasb)"),
	"ExecStart":     Fixed("a(sasb)"),
	"ExecStartPost": Fixed("a(sasb)"),
	"ExecReload":    Fixed("a(sasb)"),
	"ExecStop":      Fixed("a(sasb)"),
	"ExecStopPost":  Fixed("a(sasb)"),

	// Execution environment.
	"UtmpIdentifier":           Fixed("s"),
	"UtmpMode":                 Fixed("s"),
	"PAMName":                  Fixed("s"),
	"SELinuxContext":           Fixed("s"),
	"KeyringMode":              Fixed("s"),
	"SyslogLevelPrefix":        Fixed("b"),
	"MemoryDenyWriteExecute":   Fixed("b"),
	"RestrictRealtime":         Fixed("b"),
	"RemoveIPC":                Fixed("b"),
	"MountAPIVFS":              Fixed("b"),
	"CPUSchedulingResetOnFork": Fixed("b"),
	"LockPersonality":          Fixed("b"),
	"SupplementaryGroups":      Fixed("as"),
	"SystemCallArchitectures":  Fixed("as"),
	"SystemCallFilter":         Fixed("(bas)"),

	// Runtime clamps. The *Sec aliases are what unit files use; on
	// the bus they travel as microseconds.
	"RuntimeMaxUSec": Fixed("t"),
	"RuntimeMaxSec":  Rescale("RuntimeMaxUSec", "t", usecPerSec),
	"WatchdogUSec":   Fixed("t"),
	"WatchdogSec":    Rescale("WatchdogUSec", "t", usecPerSec),
	"TimeoutSec":     Rescale("TimeoutUSec", "t", usecPerSec),

	"SyslogIdentifier": Fixed("s"),

	// Standard streams.
	"StandardInput":               Fixed("s"),
	"StandardOutput":              Fixed("s"),
	"StandardError":               Fixed("s"),
	"TTYPath":                     Fixed("s"),
	"TTYReset":                    Fixed("b"),
	"TTYVHangup":                  Fixed("b"),
	"TTYVTDisallocate":            Fixed("b"),
	"IgnoreSIGPIPE":               Fixed("b"),
	"StandardInputFileDescriptor": Fixed("h"),
	"StandardOutputFile":          Fixed("s"),
	"StandardOutputFileToAppend":  Fixed("s"),
	"StandardOutputFileDescriptor": Fixed("h"),
	"StandardErrorFile":            Fixed("s"),
	"StandardErrorFileToAppend":    Fixed("s"),
	"StandardErrorFileDescriptor":  Fixed("h"),
	"StandardInputData":            Fixed("ay"),
	"Environment":                  Fixed("as"),
	"PassEnvironment":              Fixed("as"),
	"UnsetEnvironment":             Fixed("as"),
	"EnvironmentFiles":             Fixed("a(sb)"),

	// Timers.
	"OnActiveSec":       Fixed("t"),
	"RemainAfterElapse": Fixed("b"),
	"OnUnitActiveSec":   Fixed("t"),
	"OnCalendar":        Fixed("s"),
	"OnStartupSec":      Fixed("t"),
	"OnBootSec":         Fixed("t"),
	"OnUnitInactiveSec": Fixed("t"),
	"TimersMonotonic":   Fixed("a(st)"),
	"WakeSystem":        Fixed("b"),
	"Persistent":        Fixed("b"),

	// Filesystem layout.
	"WorkingDirectory": Fixed("s"),
	"RootDirectory":    Fixed("s"),
	"RootImage":        Fixed("s"),

	// Mounts and namespaces.
	"BindPaths":                Fixed("a(ssbt)"),
	"BindReadOnlyPaths":        Fixed("a(ssbt)"),
	"ReadWritePaths":           Fixed("as"),
	"ReadOnlyPaths":            Fixed("as"),
	"ReadWriteDirectories":     Fixed("as"),
	"ReadOnlyDirectories":      Fixed("as"),
	"InaccessibleDirectories":  Fixed("as"),
	"InaccessiblePaths":        Fixed("as"),
	"TemporaryFileSystem":      Fixed("a(ss)"),
	"MountFlags":               Fixed("t"),
	"StateDirectory":           Fixed("as"),
	"CacheDirectory":           Fixed("as"),
	"LogsDirectory":            Fixed("as"),
	"RuntimeDirectory":         Fixed("as"),
	"RuntimeDirectoryPreserve": Fixed("s"),
	"ConfigurationDirectory":   Fixed("as"),
	"PrivateTmp":               Fixed("b"),
	"PrivateDevices":           Fixed("b"),
	"PrivateNetwork":           Fixed("b"),
	"PrivateUsers":             Fixed("b"),
	"ProtectKernelTunables":    Fixed("b"),
	"ProtectKernelModules":     Fixed("b"),
	"ProtectControlGroups":     Fixed("b"),
	"ProtectHome":              Fixed("s"),
	"ProtectSystem":            Fixed("s"),

	// Kill behavior.
	"KillMode":                 Fixed("s"),
	"KillSignal":               Fixed("i"),
	"SendSIGHUP":               Fixed("b"),
	"SendSIGKILL":              Fixed("b"),
	"RestartPreventExitStatus": Fixed("(aiai)"),
	"RestartForceExitStatus":   Fixed("(aiai)"),
	"SuccessExitStatus":        Fixed("(aiai)"),

	// Resource limits.
	"LimitCPU":            Fixed("t"),
	"LimitCPUSoft":        Fixed("t"),
	"LimitFSIZE":          Fixed("t"),
	"LimitFSIZESoft":      Fixed("t"),
	"LimitDATA":           Fixed("t"),
	"LimitDATASoft":       Fixed("t"),
	"LimitSTACK":          Fixed("t"),
	"LimitSTACKSoft":      Fixed("t"),
	"LimitCORE":           Fixed("t"),
	"LimitCORESoft":       Fixed("t"),
	"LimitRSS":            Fixed("t"),
	"LimitRSSSoft":        Fixed("t"),
	"LimitNOFILE":         Fixed("t"),
	"LimitNOFILESoft":     Fixed("t"),
	"LimitAS":             Fixed("t"),
	"LimitASSoft":         Fixed("t"),
	"LimitNPROC":          Fixed("t"),
	"LimitNPROCSoft":      Fixed("t"),
	"LimitMEMLOCK":        Fixed("t"),
	"LimitMEMLOCKSoft":    Fixed("t"),
	"LimitLOCKS":          Fixed("t"),
	"LimitLOCKSSoft":      Fixed("t"),
	"LimitSIGPENDING":     Fixed("t"),
	"LimitSIGPENDINGSoft": Fixed("t"),
	"LimitMSGQUEUE":       Fixed("t"),
	"LimitMSGQUEUESoft":   Fixed("t"),
	"LimitNICE":           Fixed("t"),
	"LimitNICESoft":       Fixed("t"),
	"LimitRTPRIO":         Fixed("t"),
	"LimitRTPRIOSoft":     Fixed("t"),
	"LimitRTTIME":         Fixed("t"),
	"LimitRTTIMESoft":     Fixed("t"),

	// Control groups.
	"DevicePolicy":       Fixed("s"),
	"Slice":              Fixed("s"),
	"Delegate":           Fixed("b"),
	"CPUAccounting":      Fixed("b"),
	"MemoryAccounting":   Fixed("b"),
	"MemoryLow":          Fixed("t"),
	"MemoryLowScale":     Fixed("u"),
	"MemoryHigh":         Fixed("t"),
	"MemoryHighScale":    Fixed("u"),
	"MemoryMax":          Fixed("t"),
	"MemoryMaxScale":     Fixed("u"),
	"MemorySwapMax":      Fixed("t"),
	"MemorySwapMaxScale": Fixed("u"),
	"MemoryLimit":        Fixed("t"),
	"MemoryLimitScale":   Fixed("u"),
	"IOAccounting":       Fixed("b"),
	"BlockIOAccounting":  Fixed("b"),
	"TasksAccounting":    Fixed("b"),
	"TasksMax":           Fixed("t"),
	"TasksMaxScale":      Fixed("u"),
	"CPUQuota":           Rescale("CPUQuotaPerSecUSec", "t", usecPerSec),
	"CPUQuotaPerSecUSec": Fixed("t"),
	"IPAccounting":       Fixed("b"),
	"IPAddressAllow":     Fixed("a(iayu)"),
	"IPAddressDeny":      Fixed("a(iayu)"),

	// Sockets.
	"BindIPv6Only":             Fixed("s"),
	"Backlog":                  Fixed("u"),
	"TimeoutUSec":              Fixed("t"),
	"BindToDevice":             Fixed("s"),
	"SocketUser":               Fixed("s"),
	"SocketGroup":              Fixed("s"),
	"SocketMode":               Fixed("u"),
	"DirectoryMode":            Fixed("u"),
	"Accept":                   Fixed("b"),
	"Writable":                 Fixed("b"),
	"KeepAlive":                Fixed("b"),
	"KeepAliveTimeUSec":        Fixed("t"),
	"KeepAliveIntervalUSec":    Fixed("t"),
	"KeepAliveProbes":          Fixed("u"),
	"DeferAcceptUSec":          Fixed("t"),
	"NoDelay":                  Fixed("b"),
	"Priority":                 Fixed("i"),
	"ReceiveBuffer":            Fixed("t"),
	"SendBuffer":               Fixed("t"),
	"IPTOS":                    Fixed("i"),
	"IPTTL":                    Fixed("i"),
	"PipeSize":                 Fixed("t"),
	"FreeBind":                 Fixed("b"),
	"Transparent":              Fixed("b"),
	"Broadcast":                Fixed("b"),
	"PassCredentials":          Fixed("b"),
	"PassSecurity":             Fixed("b"),
	"RemoveOnStop":             Fixed("b"),
	"Listen":                   Fixed("a(ss)"),
	"ListenStream":             Wrap("Listen", "a(ss)", "Stream"),
	"ListenDatagram":           Wrap("Listen", "a(ss)", "Datagram"),
	"ListenSequentialPacket":   Wrap("Listen", "a(ss)", "SequentialPacket"),
	"ListenNetlink":            Wrap("Listen", "a(ss)", "Netlink"),
	"ListenSpecial":            Wrap("Listen", "a(ss)", "Special"),
	"ListenMessageQueue":       Wrap("Listen", "a(ss)", "MessageQueue"),
	"ListenFIFO":               Wrap("Listen", "a(ss)", "FIFO"),
	"ListenUSBFunction":        Wrap("Listen", "a(ss)", "USBFunction"),
	"Symlinks":                 Fixed("as"),
	"Mark":                     Fixed("i"),
	"MaxConnections":           Fixed("u"),
	"MaxConnectionsPerSource":  Fixed("u"),
	"MessageQueueMaxMessages":  Fixed("x"),
	"MessageQueueMessageSize":  Fixed("x"),
	"TCPCongestion":            Fixed("s"),
	"ReusePort":                Fixed("b"),
	"SmackLabel":               Fixed("s"),
	"SmackLabelIPIn":           Fixed("s"),
	"SmackLabelIPOut":          Fixed("s"),
	"ControlPID":               Fixed("u"),
	"Result":                   Fixed("s"),
	"NConnections":             Fixed("u"),
	"NAccepted":                Fixed("u"),
	"NRefused":                 Fixed("u"),
	"FileDescriptorName":       Fixed("s"),
	"SocketProtocol":           Fixed("i"),
	"TriggerLimitIntervalUSec": Fixed("t"),
	"TriggerLimitBurst":        Fixed("u"),
	"UID":                      Fixed("u"),
	"GID":                      Fixed("u"),

	// Escape hatch for properties the catalog does not know.
	"_custom": Passthrough(),
}
