package monitor

const topThreadsOutput = `Threads: 64 total,   0 running,  64 sleeping,   0 stopped,   0 zombie
  Mem:   3771868K total,  3526092K used,   245776K free,    14968K buffers
 Swap:   2097148K total,   612352K used,  1484796K free,  1496508K cached
800%cpu  40%user   0%nice  40%sys 712%idle   0%iow   8%irq   0%sirq   0%host
  TID USER         PR  NI VIRT  RES  SHR S[%CPU] %MEM     TIME+ THREAD          PROCESS
 4321 u0_a123      10 -10 1.2G 150M  90M S 12.5   4.0   0:10.12 RenderThread    com.example.app
 4300 u0_a123      10 -10 1.2G 150M  90M S  3.2   4.0   0:05.01 com.example.app com.example.app
 4330 u0_a123      20   0 1.2G 150M  90M S  0.0   4.0   0:00.01 Jit thread pool com.example.app
`

const psOutput = `  TID %CPU CMD
 4300  2.0 com.example.app
 4321  7.5 RenderThread
`

const snapshotOutput = `Tasks: 1 total,   0 running,   1 sleeping,   0 stopped,   0 zombie
800%cpu 100%user   0%nice  60%sys 640%idle   0%iow   0%irq   0%sirq   0%host
  PID USER         PR  NI VIRT  RES  SHR S[%CPU] %MEM     TIME+ ARGS
 4300 u0_a123      10 -10 1.2G 150M  90M S 50.0   4.0   1:00.00 com.example.app
Tasks: 1 total,   0 running,   1 sleeping,   0 stopped,   0 zombie
800%cpu 200%user   0%nice  40%sys 560%idle   0%iow   0%irq   0%sirq   0%host
  PID USER         PR  NI VIRT  RES  SHR S[%CPU] %MEM     TIME+ ARGS
 4300 u0_a123      10 -10 1.2G 150M  90M S 22.0   4.0   1:00.11 com.example.app
`

const meminfoOutput = `Applications Memory Usage (in Kilobytes):
Uptime: 123456 Realtime: 123456

** MEMINFO in pid 4300 [com.example.app] **
                   Pss  Private  Private  SwapPss      Rss     Heap     Heap     Heap
                 Total    Dirty    Clean    Dirty    Total     Size    Alloc     Free
                ------   ------   ------   ------   ------   ------   ------   ------
  Native Heap    20000    19900        0       10    21000    30000    25000     5000
  Dalvik Heap    10000     9800        0        5    11000    20000    15000     5000
        TOTAL    61234    50000     3000      100    80000    50000    40000    10000

 App Summary
                       Pss(KB)                        Rss(KB)
                        ------                         ------
           Java Heap:    12000                          25000
         Native Heap:    19900                          21000
                Code:     8000                          30000
               Stack:      600                            600
            Graphics:     4000                           4000
       Private Other:     3000
              System:    13734
             Unknown:                                    2000

           TOTAL PSS:    61234            TOTAL RSS:    82600       TOTAL SWAP PSS:      100

 Objects
               Views:       10         ViewRootImpl:        1
`

const meminfoLegacyOutput = `** MEMINFO in pid 4300 [com.example.app] **
 App Summary
                       Pss(KB)
                        ------
           Java Heap:     5000
         Native Heap:     6000
                Code:     1000
               Stack:      100
            Graphics:      200
       Private Other:      300
              System:      400
               TOTAL:    13000      TOTAL SWAP PSS:       10
`
